// Package http implements the HTTP transport of the dFS remote access API.
// Every request is one POST to /rpc whose body is the serialized message;
// the response body is the serialized reply. Combined with the json
// serializer this makes the daemon scriptable with plain curl.
//
// Key Components:
//
//   - httpClientTransport: Implements IRPCClientTransport with round-robin
//     selection across the configured endpoints and a retry per request.
//
//   - httpServerTransport: Implements IRPCServerTransport on an http.Server
//     that can be shut down by Close. At debug level every request is logged
//     with its status code and duration.
//
// Thread Safety:
//
//	The client transport is safe for concurrent use. It uses an atomic
//	counter for the round-robin selection of the endpoints.
package http
