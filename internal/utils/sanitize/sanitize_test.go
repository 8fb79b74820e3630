package sanitize

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestText(t *testing.T) {
	assert.Equal(t, "Premium", Text("  <b>Premium</b> "))
	assert.Equal(t, "", Text(`<script>alert("x")</script>`))
	assert.Equal(t, "plain title", Text("plain title"))
}

func TestStrings(t *testing.T) {
	got := Strings([]string{"<i>HD</i>", "<script>x</script>", " 4 screens "})
	assert.Equal(t, []string{"HD", "4 screens"}, got)
}
