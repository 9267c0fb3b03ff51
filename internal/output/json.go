package output

import (
	"encoding/json"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/stationlink/stationlink/internal/servers"
	"github.com/stationlink/stationlink/internal/topic"
)

// JSONFormatter renders results as JSON.
type JSONFormatter struct {
	Indent bool
}

func (f *JSONFormatter) FormatServers(list []servers.Server) (string, error) {
	if list == nil {
		list = []servers.Server{}
	}
	return f.marshal(list)
}

func (f *JSONFormatter) FormatStatus(address string, status *topic.Status) (string, error) {
	return f.marshal(status)
}

func (f *JSONFormatter) marshal(v any) (string, error) {
	var (
		data []byte
		err  error
	)

	if f.Indent {
		data, err = json.MarshalIndent(v, "", "  ")
	} else {
		data, err = json.Marshal(v)
	}
	if err != nil {
		return "", err
	}

	return string(data), nil
}

// YAMLFormatter renders results as YAML.
type YAMLFormatter struct{}

func (f *YAMLFormatter) FormatServers(list []servers.Server) (string, error) {
	if list == nil {
		list = []servers.Server{}
	}
	return marshalYAML(list)
}

func (f *YAMLFormatter) FormatStatus(address string, status *topic.Status) (string, error) {
	return marshalYAML(status)
}

func marshalYAML(v any) (string, error) {
	data, err := yaml.Marshal(v)
	if err != nil {
		return "", err
	}
	return strings.TrimRight(string(data), "\n"), nil
}
