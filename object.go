package kibtools

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/tidwall/gjson" // Dynamic JSON parsing

	"github.com/kibtools/kibtools/pkg/str"
)

// ObjectType is the kind of a Kibana saved object.
type ObjectType string

// The saved object types kibtools knows how to export and import.
const (
	TypeDashboard     ObjectType = "dashboard"
	TypeVisualization ObjectType = "visualization"
	TypeSearch        ObjectType = "search"
)

// AllObjectTypes lists every supported saved object type.
var AllObjectTypes = []ObjectType{TypeDashboard, TypeVisualization, TypeSearch}

// ParseObjectType parses a saved object type name.
func ParseObjectType(s string) (ObjectType, error) {
	switch t := ObjectType(s); t {
	case TypeDashboard, TypeVisualization, TypeSearch:
		return t, nil
	}
	return "", fmt.Errorf("unknown saved object type %q", s)
}

// KibanaObject is a single Kibana saved object (dashboard, visualization,
// or saved search) pulled from an Elasticsearch index.
//
// Payload is the object's saved definition, kept as raw JSON so that
// exporting and re-importing an object round-trips it byte-identically.
// kibtools never validates or rewrites it.
type KibanaObject struct {
	ID      string
	Type    ObjectType
	Payload json.RawMessage
}

// DocID returns the Elasticsearch document ID for this object,
// in the `<type>:<id>` form the .kibana index uses.
func (o *KibanaObject) DocID() string {
	return string(o.Type) + ":" + o.ID
}

// DocBody returns the Elasticsearch document body for this object:
// the payload nested under a field named after the object type, the way
// the .kibana index stores saved objects.
func (o *KibanaObject) DocBody() map[string]interface{} {
	return map[string]interface{}{
		"type":         string(o.Type),
		string(o.Type): o.Payload,
	}
}

// PanelIDs returns the IDs of the visualizations placed on a dashboard,
// parsed out of the dashboard's panelsJSON field. Returns nil for
// non-dashboards and for dashboards without panels.
func (o *KibanaObject) PanelIDs() []string {
	if o.Type != TypeDashboard {
		return nil
	}
	panels := gjson.GetBytes(o.Payload, "panelsJSON")
	if !panels.Exists() {
		return nil
	}
	var ids []string
	// panelsJSON is a string containing a JSON array of panel objects.
	gjson.Parse(panels.String()).ForEach(func(_, panel gjson.Result) bool {
		if id := panel.Get("id").String(); id != "" {
			ids = append(ids, id)
		}
		return true
	})
	ids = str.Uniq(ids...)
	sort.Strings(ids)
	return ids
}

// SavedSearchID returns the ID of the saved search a visualization is
// built on, or "" if the visualization doesn't reference one.
func (o *KibanaObject) SavedSearchID() string {
	if o.Type != TypeVisualization {
		return ""
	}
	return gjson.GetBytes(o.Payload, "savedSearchId").String()
}

// parseSavedObject builds a KibanaObject from a .kibana document.
// docID is the Elasticsearch `_id`; source is the raw `_source`.
func parseSavedObject(docID string, source []byte) (*KibanaObject, error) {
	typeField := gjson.GetBytes(source, "type")
	if !typeField.Exists() {
		return nil, fmt.Errorf("document %q has no type field", docID)
	}
	t, err := ParseObjectType(typeField.String())
	if err != nil {
		return nil, fmt.Errorf("document %q: %s", docID, err)
	}
	payload := gjson.GetBytes(source, typeField.String())
	if !payload.Exists() {
		return nil, fmt.Errorf("document %q has no %s payload", docID, t)
	}
	return &KibanaObject{
		ID:      strings.TrimPrefix(docID, typeField.String()+":"),
		Type:    t,
		Payload: json.RawMessage(payload.Raw),
	}, nil
}
