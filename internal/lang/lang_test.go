package lang

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestForExtension(t *testing.T) {
	t.Parallel()

	tests := []struct {
		ext  string
		want string
	}{
		{".php", "php"},
		{".PHP", "php"},
		{".py", ""},
		{".js", ""},
		{"", ""},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.ext, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, ForExtension(tt.ext))
		})
	}
}

func TestLanguagesRegistered(t *testing.T) {
	t.Parallel()

	l, ok := Languages["php"]
	require.True(t, ok, "php language not registered")
	assert.NotNil(t, l.lang)
	assert.NotNil(t, l.NewParser())
}

func TestGetCallQuery(t *testing.T) {
	t.Parallel()

	q, err := Languages["php"].GetCallQuery()
	require.NoError(t, err)
	require.NotNil(t, q)

	names := map[string]bool{}
	for i := uint32(0); i < q.CaptureCount(); i++ {
		names[q.CaptureNameForId(i)] = true
	}
	for _, want := range []string{"call.function", "call.method", "call.static", "call.new"} {
		assert.True(t, names[want], "missing capture %s", want)
	}
}

func TestUnqualified(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "helper", unqualified(`\App\Util\helper`))
	assert.Equal(t, "strlen", unqualified(`\strlen`))
	assert.Equal(t, "Foo", unqualified("Foo"))
}

func TestCollapseWhitespace(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "$obj->$m()", CollapseWhitespace("  $obj->$m()\n"))
	assert.Equal(t, "a b", CollapseWhitespace("a \n\t b"))
}
