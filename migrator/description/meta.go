package description

type FieldType string

const (
	FieldTypeString   FieldType = "string"
	FieldTypeNumber   FieldType = "number"
	FieldTypeBool     FieldType = "bool"
	FieldTypeArray    FieldType = "array"
	FieldTypeObject   FieldType = "object"
	FieldTypeObjects  FieldType = "objects"
	FieldTypeGeneric  FieldType = "generic"
	FieldTypeDateTime FieldType = "datetime"
	FieldTypeDate     FieldType = "date"
	FieldTypeTime     FieldType = "time"
	FieldTypeEnum     FieldType = "enum"
)

//The shadow struct of the object schema carried by createObject and renameObject.
type MetaDescription struct {
	Name   string  `json:"name"`
	Key    string  `json:"key"`
	Fields []Field `json:"fields"`
	Cas    bool    `json:"cas"`
}

func (md *MetaDescription) FindField(fieldName string) *Field {
	for i, field := range md.Fields {
		if field.Name == fieldName {
			return &md.Fields[i]
		}
	}
	return nil
}

type Field struct {
	Name           string      `json:"name"`
	Type           FieldType   `json:"type"`
	LinkMeta       string      `json:"linkMeta,omitempty"`
	LinkType       string      `json:"linkType,omitempty"`
	OuterLinkField string      `json:"outerLinkField,omitempty"`
	Optional       bool        `json:"optional"`
	OnDelete       string      `json:"onDelete,omitempty"`
	Def            interface{} `json:"default,omitempty"`
	NowOnUpdate    bool        `json:"nowOnUpdate,omitempty"`
	NowOnCreate    bool        `json:"nowOnCreate,omitempty"`
}

type DefExpr struct {
	Func string
	Args []interface{}
}

//Default returns the generator function of the field default ({"func": "nextval"}), if any.
func (f *Field) Default() *DefExpr {
	if t, ok := f.Def.(map[string]interface{}); ok {
		fn, _ := t["func"].(string)
		var args []interface{}
		if a, ok := t["args"].([]interface{}); ok {
			args = a
		}
		return &DefExpr{Func: fn, Args: args}
	}
	return nil
}
