package migration

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSplitTag(t *testing.T) {
	assert.Equal(t, []string{"numeric(12,2)", "default:0"}, splitTag("numeric(12,2),default:0"))
	assert.Equal(t, []string{"references:t(a,b)", "unique"}, splitTag("references:t(a,b),unique"))
	assert.Equal(t, []string{""}, splitTag(""))
	assert.Equal(t, []string{"varchar(32)", "unique"}, splitTag("varchar(32),unique"))
}
