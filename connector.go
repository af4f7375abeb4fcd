package soap

import (
	"context"
	"maps"
)

// WebServiceConnector adapts Client to a workflow engine that drives
// connectors with untyped input and output mappings:
// SetInputParameters, ValidateInputParameters, then Execute.
type WebServiceConnector struct {
	client *Client
	input  map[string]any
	params *Parameters
}

// NewWebServiceConnector creates a connector backed by client.
func NewWebServiceConnector(client *Client) *WebServiceConnector {
	return &WebServiceConnector{client: client}
}

// Name returns the connector identifier.
func (w *WebServiceConnector) Name() string { return "webservice" }

// SetInputParameters stores the engine's input mapping. Any previous
// validation is discarded.
func (w *WebServiceConnector) SetInputParameters(input map[string]any) {
	w.input = maps.Clone(input)
	w.params = nil
}

// ValidateInputParameters converts and checks the input mapping. It returns a
// *ConfigurationError naming the offending parameter.
func (w *WebServiceConnector) ValidateInputParameters() error {
	params, err := ParametersFromMap(w.input)
	if err != nil {
		return err
	}
	if err := w.client.Validate(params); err != nil {
		return err
	}
	w.params = params
	return nil
}

// Execute performs the call and returns the output mapping.
func (w *WebServiceConnector) Execute(ctx context.Context) (map[string]any, error) {
	if w.params == nil {
		if err := w.ValidateInputParameters(); err != nil {
			return nil, err
		}
	}
	result, err := w.client.Invoke(ctx, w.params)
	if err != nil {
		return nil, err
	}
	return result.Outputs(), nil
}
