package models

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/hashicorp/go-version"
)

// GroupingFileVersion is the document version written to the grouping file.
var GroupingFileVersion = version.Must(version.NewVersion("1.0"))

// GroupRecord is one persisted alias group: a stable id, the ordered member
// identifiers and an optional display name.
type GroupRecord struct {
	ID          string   `json:"id"`
	Emails      []string `json:"emails"`
	DisplayName string   `json:"display_name,omitempty"`
}

// GroupingDocument is the on-disk grouping state. The version field is
// tolerated in any shape a hand-edited file might carry (string, number,
// missing); an unparseable or mismatched version is a warning at load time,
// never a rejection.
type GroupingDocument struct {
	Version *version.Version `json:"version"`
	Groups  []GroupRecord    `json:"groups"`
}

func (d GroupingDocument) MarshalJSON() ([]byte, error) {
	doc := struct {
		Version string        `json:"version"`
		Groups  []GroupRecord `json:"groups"`
	}{
		// Original keeps the two-segment form; String would pad to 1.0.0.
		Version: GroupingFileVersion.Original(),
		Groups:  d.Groups,
	}
	if d.Version != nil {
		doc.Version = d.Version.Original()
	}
	if doc.Groups == nil {
		doc.Groups = []GroupRecord{}
	}
	return json.Marshal(doc)
}

func (d *GroupingDocument) UnmarshalJSON(data []byte) error {
	aux := struct {
		Version any           `json:"version"`
		Groups  []GroupRecord `json:"groups"`
	}{}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	d.Groups = aux.Groups
	if parsed, err := version.NewVersion(coerceVersionString(aux.Version)); err == nil {
		d.Version = parsed
	} else {
		d.Version = nil
	}
	return nil
}

// coerceVersionString renders whatever the version field decoded into as a
// semver-ish string. YAML and JSON hand back strings, floats or ints
// depending on how the author quoted the value.
func coerceVersionString(value any) string {
	switch v := value.(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case int:
		return strconv.Itoa(v)
	case nil:
		return ""
	default:
		return fmt.Sprintf("%v", v)
	}
}

// GroupView is the display shape of a group inside consolidated results.
type GroupView struct {
	Members     []string `json:"members"`
	DisplayName string   `json:"display_name,omitempty"`
}
