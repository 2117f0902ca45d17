package common

import (
	"bytes"
	"encoding/json"
	"fmt"
	"unicode"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// ReadDataToInterface decodes a blob of connector or grouping data into T.
// The format is sniffed from the first non-space byte: '{' or '[' means JSON,
// anything else is parsed as YAML and bridged through JSON so both formats
// land on the same struct tags.
func ReadDataToInterface[T any](data []byte, _ T) (*T, error) {

	var item T

	data = bytes.TrimLeftFunc(data, unicode.IsSpace)

	if len(data) == 0 {
		return nil, fmt.Errorf("no data provided")

	} else if data[0] == '{' || data[0] == '[' {
		logrus.Debugln("Data format detected: JSON")
	} else {
		var yamlData any
		if err := yaml.Unmarshal(data, &yamlData); err != nil {
			logrus.WithError(err).Errorln("Failed to unmarshal YAML")
			return nil, err
		}

		jsonData, err := json.Marshal(yamlData)
		if err != nil {
			logrus.WithError(err).Errorln("Failed to convert YAML to JSON")
			return nil, err
		}
		data = jsonData
	}

	if err := json.Unmarshal(data, &item); err != nil {
		logrus.WithError(err).Errorln("Failed to unmarshal JSON data")
		return nil, fmt.Errorf("failed to unmarshal data: %w", err)
	}

	return &item, nil
}
