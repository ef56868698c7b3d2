package serializer

import (
	"encoding/json"

	"github.com/ValentinKolb/dFS/rpc/common"
)

// NewJSONSerializer creates a new serializer using json encoding. Byte
// slices are base64 encoded, so the payload is about a third larger than
// with the binary serializer.
func NewJSONSerializer() IRPCSerializer {
	return &jsonSerializerImpl{}
}

// jsonSerializerImpl implements the IRPCSerializer interface using json encoding
type jsonSerializerImpl struct {
}

// --------------------------------------------------------------------------
// Interface Methods (docu see serializer.IRPCSerializer)
// --------------------------------------------------------------------------

func (j jsonSerializerImpl) Serialize(msg common.Message) ([]byte, error) {
	return json.Marshal(msg)
}

func (j jsonSerializerImpl) Deserialize(b []byte, msg *common.Message) error {
	// json keeps fields that are missing in b, a reused message must not
	// carry them over
	*msg = common.Message{}
	return json.Unmarshal(b, msg)
}
