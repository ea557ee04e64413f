package storage

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestObjectName(t *testing.T) {
	a := ObjectName("Summer Dress.PNG")
	b := ObjectName("Summer Dress.PNG")

	assert.True(t, strings.HasPrefix(a, "images/"))
	assert.True(t, strings.HasSuffix(a, ".png"))
	assert.NotEqual(t, a, b)
}

func TestPublicURL(t *testing.T) {
	assert.Equal(t,
		"https://storage.googleapis.com/shop-assets/images/01J%20x.png",
		PublicURL("shop-assets", "images/01J x.png"),
	)
}
