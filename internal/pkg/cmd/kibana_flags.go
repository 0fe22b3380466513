package cmd

import (
	"github.com/kibtools/kibtools"
)

// KibanaFlags represents the flags shared by commands that work with
// Kibana saved objects in an Elasticsearch index.
type KibanaFlags struct {
	// Name of the index holding Kibana saved objects.
	Index string

	// Saved object type names to operate on.
	TypeNames []string
}

// NewKibanaFlags returns a new KibanaFlags.
func NewKibanaFlags(app Flagger, defaultIndex string) *KibanaFlags {
	var f KibanaFlags

	app.Flag("index", "Name of the Elasticsearch index holding Kibana saved objects.").
		Default(defaultIndex).
		StringVar(&f.Index)

	typeNames := make([]string, len(kibtools.AllObjectTypes))
	for i, t := range kibtools.AllObjectTypes {
		typeNames[i] = string(t)
	}
	app.Flag("type", "Saved object type(s) to operate on. May be set multiple times. Default: all types.").
		Short('t').
		Default(typeNames...).
		EnumsVar(&f.TypeNames, typeNames...)

	return &f
}

// Types parses the type flag values. An empty set is rejected with
// kibtools.ErrNoTypes before any I/O happens.
func (f *KibanaFlags) Types() ([]kibtools.ObjectType, error) {
	if len(f.TypeNames) == 0 {
		return nil, kibtools.ErrNoTypes
	}
	types := make([]kibtools.ObjectType, len(f.TypeNames))
	for i, name := range f.TypeNames {
		t, err := kibtools.ParseObjectType(name)
		if err != nil {
			return nil, err
		}
		types[i] = t
	}
	return types, nil
}
