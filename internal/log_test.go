package internal

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPrefix(t *testing.T) {
	assert.Equal(t, `[1/2] "MyApp.ipa" - `, Prefix(0, 2, "path/to/MyApp.ipa"))
	assert.Equal(t, `[2/2] "MyVeryVeryVeryLongApplicati..." - `, Prefix(1, 2, "MyVeryVeryVeryLongApplicationName.app"))
}
