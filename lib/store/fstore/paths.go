package fstore

import (
	"path"
	"path/filepath"
	"strings"

	"github.com/ValentinKolb/dFS/lib/store"
	"github.com/ValentinKolb/dFS/replication/wire"
)

// --------------------------------------------------------------------------
// Interface Methods (docu see store.IStore)
// --------------------------------------------------------------------------

func (e *engine) IsAccessible(p string) bool {
	if p == "/" {
		return true
	}
	_, ok := e.namespaces[e.namespaceName(p)]
	return ok
}

func (e *engine) IsTopLevel(p string) bool {
	if !strings.HasSuffix(p, "/") {
		p += "/"
	}
	return strings.Count(p, "/") <= 2
}

func (e *engine) Resolve(p string) string {
	return filepath.Join(e.root, filepath.FromSlash(p))
}

func (e *engine) Namespaces() []string {
	return append([]string(nil), e.names...)
}

// --------------------------------------------------------------------------
// Helper Methods
// --------------------------------------------------------------------------

// namespaceName returns the first segment of p
func (e *engine) namespaceName(p string) string {
	name, _, _ := strings.Cut(strings.TrimPrefix(p, "/"), "/")
	return name
}

// validateFile checks that p can name a file and returns its namespace
func (e *engine) validateFile(p string) (*namespace, error) {
	if !strings.HasPrefix(p, "/") || path.Clean(p) != p {
		return nil, store.NewError(store.RetCInvalidPath, "path "+p+" is not absolute and clean")
	}
	if len(p) > wire.MaxPathLen {
		return nil, store.NewError(store.RetCInvalidPath, "path "+p[:32]+"... is too long")
	}
	if !e.IsAccessible(p) {
		return nil, store.NewError(store.RetCAccessDenied, "path "+p+" is not inside a configured namespace")
	}
	if e.IsTopLevel(p) {
		return nil, store.NewError(store.RetCInvalidPath, "path "+p+" is a namespace root")
	}

	ns := e.namespaces[e.namespaceName(p)]
	if path.Dir(p) == "/"+ns.Name && strings.HasPrefix(path.Base(p), MetadataFile) {
		return nil, store.NewError(store.RetCInvalidPath, "path "+p+" is reserved")
	}
	return ns, nil
}

// validateDir checks that p is "/", a namespace root or a directory inside a
// namespace and returns the prefix its files share
func (e *engine) validateDir(p string) (string, error) {
	if !strings.HasPrefix(p, "/") || path.Clean(p) != p {
		return "", store.NewError(store.RetCInvalidPath, "path "+p+" is not absolute and clean")
	}
	if !e.IsAccessible(p) {
		return "", store.NewError(store.RetCAccessDenied, "path "+p+" is not inside a configured namespace")
	}
	if p == "/" {
		return "/", nil
	}
	return p + "/", nil
}
