package shim

import (
	"fmt"
	"strings"
)

// PropertyInfo carries field metadata used by mirrored definitions. It is
// purely descriptive and performs no validation.
type PropertyInfo struct {
	Alias         *string
	Discriminator *string
}

// PropertyOption configures a PropertyInfo.
type PropertyOption func(*PropertyInfo)

// WithAlias sets the alternative input key.
func WithAlias(alias string) PropertyOption {
	return func(p *PropertyInfo) { p.Alias = &alias }
}

// WithDiscriminator sets the member that selects a union variant.
func WithDiscriminator(name string) PropertyOption {
	return func(p *PropertyInfo) { p.Discriminator = &name }
}

// NewPropertyInfo returns a PropertyInfo with opts applied.
func NewPropertyInfo(opts ...PropertyOption) PropertyInfo {
	var p PropertyInfo
	for _, opt := range opts {
		opt(&p)
	}
	return p
}

// String lists the set attributes, e.g.
// PropertyInfo(alias="x", discriminator="y").
func (p PropertyInfo) String() string {
	var parts []string
	if p.Alias != nil {
		parts = append(parts, fmt.Sprintf("alias=%q", *p.Alias))
	}
	if p.Discriminator != nil {
		parts = append(parts, fmt.Sprintf("discriminator=%q", *p.Discriminator))
	}
	return "PropertyInfo(" + strings.Join(parts, ", ") + ")"
}
