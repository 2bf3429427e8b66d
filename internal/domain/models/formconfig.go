// internal/domain/models/formconfig.go
package models

import "time"

// FormConfigID is the singleton key of the ticket form document.
const FormConfigID = "ticket_form"

// FormField describes one dynamic input on the ticket form.
type FormField struct {
	Name     string   `bson:"name" json:"name" validate:"required,max=64"`
	Label    string   `bson:"label" json:"label" validate:"required,max=120"`
	Type     string   `bson:"type" json:"type" validate:"required,oneof=text textarea select date file"`
	Required bool     `bson:"required" json:"required"`
	Options  []string `bson:"options,omitempty" json:"options,omitempty"`
}

// FormOption is a node of the module → category → sub-category tree.
type FormOption struct {
	Name     string       `bson:"name" json:"name" validate:"required,max=120"`
	Color    string       `bson:"color" json:"color" validate:"required,hexcolor"`
	Children []FormOption `bson:"children,omitempty" json:"children,omitempty" validate:"dive"`
}

// FormConfig is the singleton document driving the ticket form.
type FormConfig struct {
	ID        string       `bson:"_id" json:"-"`
	Fields    []FormField  `bson:"fields" json:"fields" validate:"dive"`
	Modules   []FormOption `bson:"modules" json:"modules" validate:"dive"`
	UpdatedAt time.Time    `bson:"updated_at" json:"updated_at"`
	UpdatedBy string       `bson:"updated_by,omitempty" json:"updated_by,omitempty"`
}
