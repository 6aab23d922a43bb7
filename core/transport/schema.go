package transport

import (
	"encoding/json"

	"github.com/invopop/jsonschema"
)

// InboundSchema returns the JSON schema of the inbound envelope, for
// embedders that validate or document the wire contract.
func InboundSchema() ([]byte, error) {
	return reflectSchema(&Inbound{})
}

// OutboundSchema returns the JSON schema of the outbound envelope.
func OutboundSchema() ([]byte, error) {
	return reflectSchema(&Outbound{})
}

func reflectSchema(value any) ([]byte, error) {
	reflector := jsonschema.Reflector{
		Anonymous:      true,
		DoNotReference: true,
	}
	return json.MarshalIndent(reflector.Reflect(value), "", "  ")
}
