package schema

import (
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/syssam/skibbadb/internal/typeinfer"
)

// yamlDescriptor is the wire shape a declarative schema file parses into.
type yamlDescriptor struct {
	Fields []yamlField `yaml:"fields"`
}

type yamlField struct {
	Path     string          `yaml:"path"`
	Type     NominalType     `yaml:"type"`
	Required *bool           `yaml:"required"`
	Numeric  bool            `yaml:"numeric"`
	Default  any             `yaml:"default"`
	Promote  *yamlPromotion  `yaml:"promote"`
}

type yamlPromotion struct {
	Override         string `yaml:"override"`
	Unique           bool   `yaml:"unique"`
	NotNullable      bool   `yaml:"notNullable"`
	ForeignKey       string `yaml:"foreignKey"`
	OnDelete         string `yaml:"onDelete"`
	OnUpdate         string `yaml:"onUpdate"`
	Check            string `yaml:"check"`
	VectorDimensions int    `yaml:"vectorDimensions"`
	VectorType       string `yaml:"vectorType"`
}

// LoadDescriptor parses a declarative YAML schema document into a
// Descriptor. This is the non-Go "producer yielding the descriptor
// contract" alternative to the fluent builder: any tool
// that can emit this shape — a config management system, a schema
// registry sync job — can hand skibbadb a collection definition without
// a Go build step.
//
// Example document:
//
//	fields:
//	  - path: email
//	    type: string
//	    promote: {unique: true, notNullable: true}
//	  - path: age
//	    type: integer
//	    required: false
//	  - path: embedding
//	    type: array
//	    numeric: true
//	    promote: {vectorDimensions: 384}
func LoadDescriptor(r io.Reader) (*Descriptor, error) {
	var doc yamlDescriptor
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("schema: decode yaml: %w", err)
	}

	fields := make([]*Field, 0, len(doc.Fields))
	for _, yf := range doc.Fields {
		if yf.Path == "" {
			return nil, &ConfigError{Msg: "field entry missing path"}
		}
		f := &Field{Path: yf.Path, Type: yf.Type, Required: true, ArrayNumeric: yf.Numeric}
		if yf.Required != nil {
			f.Required = *yf.Required
		}
		if yf.Default != nil {
			f.DefVal = yf.Default
			f.Required = false
		}
		if yf.Promote != nil {
			p := &Promotion{Nullable: !yf.Promote.NotNullable}
			if yf.Promote.Override != "" {
				p.Override = typeinfer.Storage(yf.Promote.Override)
			}
			p.Unique = yf.Promote.Unique
			if yf.Promote.ForeignKey != "" {
				p.ForeignKeyRef = yf.Promote.ForeignKey
				p.OnDelete = RefAction(yf.Promote.OnDelete)
				p.OnUpdate = RefAction(yf.Promote.OnUpdate)
			}
			p.CheckExpr = yf.Promote.Check
			if yf.Promote.VectorDimensions > 0 {
				p.VectorDimensions = yf.Promote.VectorDimensions
				p.Override = typeinfer.Vector
				p.VectorType = VectorType(yf.Promote.VectorType)
				if p.VectorType == "" {
					p.VectorType = VectorFloat
				}
			}
			f.promotion = p
		}
		fields = append(fields, f)
	}

	d := New(fields...)
	if err := d.CheckConfig(); err != nil {
		return nil, err
	}
	return d, nil
}
