package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/idsweep-io/idsweep/internal/common"
	"github.com/idsweep-io/idsweep/internal/models"
)

// loadDataFromSource loads connector definition documents from inline data, a
// URL or a filesystem path, in that order of priority. A path may name a
// single file or a directory of YAML and JSON files.
func loadDataFromSource(path, url, data string, timeout time.Duration) ([]*models.ConnectorDefinitions, error) {

	if len(data) > 0 {

		logrus.Debugln("Loading definitions from data")

		item, err := common.ReadDataToInterface([]byte(data), models.ConnectorDefinitions{})

		if err != nil {
			logrus.WithFields(logrus.Fields{
				"data": data,
			}).WithError(err).Errorln("Error reading data from string")
			return nil, fmt.Errorf("failed to read data from string: %w", err)
		}

		return []*models.ConnectorDefinitions{item}, nil

	} else if len(url) > 0 {

		logrus.WithFields(logrus.Fields{
			"url": url,
		}).Debugln("Loading definitions from Url")

		if !common.IsValidURL(url) {
			return nil, fmt.Errorf("invalid definitions URL: %s", url)
		}

		body, err := common.FetchURL(url, timeout)

		if err != nil {
			logrus.WithFields(logrus.Fields{
				"url": url,
			}).WithError(err).Errorln("Failed to fetch from URL")
			return nil, fmt.Errorf("failed to fetch from URL %s: %w", url, err)
		}

		item, err := common.ReadDataToInterface(body, models.ConnectorDefinitions{})

		if err != nil {
			logrus.WithFields(logrus.Fields{
				"url":  url,
				"data": string(body),
			}).WithError(err).Errorln("Error reading data from URL")
			return nil, fmt.Errorf("failed to read data from URL %s: %w", url, err)
		}

		return []*models.ConnectorDefinitions{item}, nil

	} else if len(path) > 0 {

		logrus.WithFields(logrus.Fields{
			"path": path,
		}).Debugln("Loading definitions from file path")

		info, err := os.Stat(path)

		if os.IsNotExist(err) {

			logrus.WithFields(logrus.Fields{
				"path": path,
			}).Debugln("File or directory does not exist")

			// Return empty slice if path does not exist
			return []*models.ConnectorDefinitions{}, nil
		}

		if info.Mode().IsDir() {

			// Load all YAML and JSON files from directory
			return loadFromDirectory(path)

		} else if info.Mode().IsRegular() {

			item, err := readDefinitionsFile(path)

			if err != nil {
				logrus.WithError(err).Errorln("Failed to read file")
				return nil, fmt.Errorf("failed to read file %s: %w", path, err)
			}

			return []*models.ConnectorDefinitions{item}, nil

		} else {

			logrus.WithFields(logrus.Fields{
				"path": path,
			}).Errorln("Path is neither a file nor a directory")

			return []*models.ConnectorDefinitions{}, nil
		}

	}

	return nil, fmt.Errorf("either path or url must be provided")
}

// loadFromDirectory loads and merges all YAML and JSON files from a directory
func loadFromDirectory(dirPath string) ([]*models.ConnectorDefinitions, error) {

	results := make([]*models.ConnectorDefinitions, 0)

	err := filepath.Walk(dirPath, func(path string, info os.FileInfo, err error) error {

		if err != nil {
			return err
		}

		if info.IsDir() {
			return nil
		}

		name := strings.ToLower(info.Name())
		if !strings.HasSuffix(name, ".yaml") && !strings.HasSuffix(name, ".yml") && !strings.HasSuffix(name, ".json") {
			return nil // Skip non-YAML/JSON files
		}

		item, err := readDefinitionsFile(path)

		if err != nil {

			logrus.WithFields(logrus.Fields{
				"path": path,
			}).WithError(err).Errorln("Failed to read file in directory")

			return err
		}

		results = append(results, item)
		return nil
	})

	if err != nil {

		logrus.WithFields(logrus.Fields{
			"path": dirPath,
		}).WithError(err).Errorln("Failed to walk directory")

		return nil, err
	}

	return results, nil

}

func readDefinitionsFile(path string) (*models.ConnectorDefinitions, error) {

	ext := strings.ToLower(filepath.Ext(path))

	if ext != ".yaml" && ext != ".yml" && ext != ".json" {
		return nil, fmt.Errorf("unsupported file extension (yaml, json): %s", path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file %s: %w", path, err)
	}

	return common.ReadDataToInterface(data, models.ConnectorDefinitions{})
}
