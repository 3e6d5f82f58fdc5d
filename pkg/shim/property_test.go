package shim

import "testing"

func TestPropertyInfo_String(t *testing.T) {
	tests := map[string]struct {
		opts []PropertyOption
		want string
	}{
		"empty":         {want: "PropertyInfo()"},
		"alias":         {opts: []PropertyOption{WithAlias("x")}, want: `PropertyInfo(alias="x")`},
		"discriminator": {opts: []PropertyOption{WithDiscriminator("type")}, want: `PropertyInfo(discriminator="type")`},
		"both": {
			opts: []PropertyOption{WithDiscriminator("y"), WithAlias("x")},
			want: `PropertyInfo(alias="x", discriminator="y")`,
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			if got := NewPropertyInfo(tt.opts...).String(); got != tt.want {
				t.Errorf("String() = %q, want %q", got, tt.want)
			}
		})
	}
}
