package hclfile

import (
	"fmt"

	"github.com/hashicorp/hcl/v2"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
)

// fileSchema lists the top-level blocks a build file may declare.
var fileSchema = &hcl.BodySchema{
	Blocks: []hcl.BlockHeaderSchema{
		{Type: "builder", LabelNames: []string{"name"}},
		{Type: "rule"},
		{Type: "pattern", LabelNames: []string{"name"}},
		{Type: "target"},
		{Type: "virtual_target"},
		{Type: "subdir"},
	},
}

var builderSchema = &hcl.BodySchema{
	Attributes: []hcl.AttributeSchema{
		{Name: "action"},
		{Name: "command"},
		{Name: "destructive"},
		{Name: "kwargs"},
	},
}

var ruleSchema = &hcl.BodySchema{
	Attributes: []hcl.AttributeSchema{
		{Name: "targets", Required: true},
		{Name: "deps"},
		{Name: "builder", Required: true},
		{Name: "name"},
		{Name: "kwargs"},
	},
}

var patternSchema = &hcl.BodySchema{
	Attributes: []hcl.AttributeSchema{
		{Name: "target", Required: true},
		{Name: "deps", Required: true},
		{Name: "builder", Required: true},
		{Name: "exclude"},
		{Name: "kwargs"},
	},
}

var targetSchema = &hcl.BodySchema{
	Attributes: []hcl.AttributeSchema{
		{Name: "files", Required: true},
	},
}

var virtualTargetSchema = &hcl.BodySchema{
	Attributes: []hcl.AttributeSchema{
		{Name: "name", Required: true},
	},
}

var subdirSchema = &hcl.BodySchema{
	Attributes: []hcl.AttributeSchema{
		{Name: "path", Required: true},
	},
}

func blockAttrs(block *hcl.Block, schema *hcl.BodySchema) (hcl.Attributes, error) {
	content, diags := block.Body.Content(schema)
	if diags.HasErrors() {
		return nil, fmt.Errorf("%s", diags.Error())
	}
	return content.Attributes, nil
}

func attrValue(attrs hcl.Attributes, name string, ec *hcl.EvalContext) (cty.Value, bool, error) {
	attr, ok := attrs[name]
	if !ok {
		return cty.NilVal, false, nil
	}
	val, diags := attr.Expr.Value(ec)
	if diags.HasErrors() {
		return cty.NilVal, false, fmt.Errorf("evaluating %s: %s", name, diags.Error())
	}
	return val, true, nil
}

func attrString(attrs hcl.Attributes, name string, ec *hcl.EvalContext) (string, bool, error) {
	val, ok, err := attrValue(attrs, name, ec)
	if !ok || err != nil {
		return "", ok, err
	}
	conv, err := convert.Convert(val, cty.String)
	if err != nil {
		return "", true, fmt.Errorf("attribute %s: %w", name, err)
	}
	return conv.AsString(), true, nil
}

func attrBool(attrs hcl.Attributes, name string, ec *hcl.EvalContext) (bool, bool, error) {
	val, ok, err := attrValue(attrs, name, ec)
	if !ok || err != nil {
		return false, ok, err
	}
	conv, err := convert.Convert(val, cty.Bool)
	if err != nil {
		return false, true, fmt.Errorf("attribute %s: %w", name, err)
	}
	return conv.True(), true, nil
}

// attrStrings accepts either a single string or a list of strings, the
// scalar-or-list duality of build files, normalized here at the boundary.
func attrStrings(attrs hcl.Attributes, name string, ec *hcl.EvalContext) ([]string, error) {
	val, ok, err := attrValue(attrs, name, ec)
	if !ok || err != nil {
		return nil, err
	}
	if val.Type() == cty.String {
		return []string{val.AsString()}, nil
	}
	if !val.CanIterateElements() {
		return nil, fmt.Errorf("attribute %s: expected string or list of strings", name)
	}
	var out []string
	for it := val.ElementIterator(); it.Next(); {
		_, elem := it.Element()
		conv, err := convert.Convert(elem, cty.String)
		if err != nil {
			return nil, fmt.Errorf("attribute %s: %w", name, err)
		}
		out = append(out, conv.AsString())
	}
	return out, nil
}

func attrStringMap(attrs hcl.Attributes, name string, ec *hcl.EvalContext) (map[string]string, error) {
	val, ok, err := attrValue(attrs, name, ec)
	if !ok || err != nil {
		return nil, err
	}
	if !val.CanIterateElements() {
		return nil, fmt.Errorf("attribute %s: expected a map of strings", name)
	}
	out := make(map[string]string)
	for it := val.ElementIterator(); it.Next(); {
		k, v := it.Element()
		ks, err := convert.Convert(k, cty.String)
		if err != nil {
			return nil, fmt.Errorf("attribute %s: %w", name, err)
		}
		vs, err := convert.Convert(v, cty.String)
		if err != nil {
			return nil, fmt.Errorf("attribute %s: %w", name, err)
		}
		out[ks.AsString()] = vs.AsString()
	}
	return out, nil
}
