// file: internal/matcher/cpe_test.go
// version: 1.0.0
// guid: 4859f021-6a69-4546-8311-cf4e1ba46aba

package matcher

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jdfalk/cpe-resolver/internal/models"
)

const vcRedist = `cpe:2.3:a:microsoft:visual_c\+\+:2008:sp1:*:*:redistributable_package:*:*:*`

func TestParseCPE(t *testing.T) {
	c, err := ParseCPE(vcRedist)
	require.NoError(t, err)
	assert.Equal(t, "a", c.Part)
	assert.Equal(t, "microsoft", c.Vendor)
	assert.Equal(t, "visual_c++", c.Product)
	assert.Equal(t, "2008", c.Version)
	assert.Equal(t, "sp1", c.Update)
	assert.Equal(t, "*", c.Edition)
	assert.Equal(t, "redistributable_package", c.SWEdition)
	assert.Equal(t, vcRedist, c.ConfigurationString)
}

func TestParseCPEEscapedColon(t *testing.T) {
	c, err := ParseCPE(`cpe:2.3:a:acme:tool\:kit:1.0:*:*:*:*:*:*:*`)
	require.NoError(t, err)
	assert.Equal(t, "tool:kit", c.Product)
	assert.Equal(t, "1.0", c.Version)
}

func TestParseCPEErrors(t *testing.T) {
	tests := []string{
		"",
		"cpe:/a:microsoft:ie:6",
		"cpe:2.3:a:microsoft:ie",
		"cpe:2.3:a::ie:6:*:*:*:*:*:*:*",
	}
	for _, in := range tests {
		_, err := ParseCPE(in)
		assert.ErrorIs(t, err, ErrMalformedCPE, in)
	}
}

func TestFormatCPERoundTrip(t *testing.T) {
	c, err := ParseCPE(vcRedist)
	require.NoError(t, err)
	assert.Equal(t, vcRedist, FormatCPE(c))

	formatted := FormatCPE(models.Candidate{Vendor: "rarlab", Product: "winrar", Version: "6.02"})
	assert.Equal(t, "cpe:2.3:a:rarlab:winrar:6.02:*:*:*:*:*:*:*", formatted)
}

func TestCovers(t *testing.T) {
	tests := []struct {
		general, specific string
		want              bool
	}{
		{"*", "7.0.2", true},
		{"7.0", "7.0.2", true},
		{"7.0", "7.0", true},
		{"7", "7.0.2", true},
		{"7.0.104", "7.0.2", false},
		{"7.2", "7.0.2", false},
		{"7.0", "7.02", false},
		{"7.0*", "7.0.2", true},
		{"7.0.*", "7.0.2", true},
		{"-", "7.0.2", false},
	}
	for _, tt := range tests {
		if got := Covers(tt.general, tt.specific); got != tt.want {
			t.Errorf("Covers(%q, %q) = %v, want %v", tt.general, tt.specific, got, tt.want)
		}
	}
}

func TestSpecificity(t *testing.T) {
	assert.Equal(t, 0, Specificity("*"))
	assert.Equal(t, 1, Specificity("7"))
	assert.Equal(t, 2, Specificity("7.0"))
	assert.Equal(t, 2, Specificity("7.0.*"))
	assert.Equal(t, 3, Specificity("7.0.104"))
	assert.Less(t, Specificity("7.0"), Specificity("7.0.104"))
}
