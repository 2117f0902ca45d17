package common

import (
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/sirupsen/logrus"
)

// FetchURL retrieves a document over HTTP, typically a remote connector
// definitions file. Non-2xx responses are errors.
func FetchURL(url string, timeout time.Duration) ([]byte, error) {
	client := resty.New()
	if timeout > 0 {
		client.SetTimeout(timeout)
	}

	resp, err := client.R().Get(url)
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"url": url,
		}).WithError(err).Errorln("Failed to fetch from URL")
		return nil, err
	}

	if resp.IsError() {
		return nil, fmt.Errorf("unexpected status %s fetching %s", resp.Status(), url)
	}

	return resp.Body(), nil
}
