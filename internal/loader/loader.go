package loader

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// LoadParameters reads a YAML file holding a connector input mapping, e.g.
//
//	envelope: |
//	  <soapenv:Envelope ...>...</soapenv:Envelope>
//	endpointAddress: http://localhost:9002/HelloWorld
//	binding: soap11
//	httpHeaders:
//	  - [testName, [testValue]]
func LoadParameters(path string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading parameters file %s: %w", path, err)
	}

	var params map[string]any
	if err := yaml.Unmarshal(data, &params); err != nil {
		return nil, fmt.Errorf("parsing parameters file %s: %w", path, err)
	}
	if len(params) == 0 {
		return nil, fmt.Errorf("parameters file %s: no parameters", path)
	}

	// An envelope may live in its own file next to the parameters.
	if file, ok := params["envelopeFile"].(string); ok && file != "" {
		if _, exists := params["envelope"]; exists {
			return nil, fmt.Errorf("parameters file %s: only one of envelope and envelopeFile can be set", path)
		}
		envelope, err := os.ReadFile(resolve(path, file))
		if err != nil {
			return nil, fmt.Errorf("reading envelope file: %w", err)
		}
		params["envelope"] = string(envelope)
		delete(params, "envelopeFile")
	}
	return params, nil
}

// resolve interprets name relative to the directory of the file that references it.
func resolve(from, name string) string {
	if filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(filepath.Dir(from), name)
}
