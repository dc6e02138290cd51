package version

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCompare(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"1.8.0", "1.8.5", -1},
		{"1.8.10", "1.8.9", 1},
		{"1.8", "1.8.0", 0},
		{"2.2.7", "2.2.7", 0},
		{"1.2.13", "1.2.9", 1},
		{"v2.0.0", "2.0.0", 0},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Compare(tt.a, tt.b), "%s vs %s", tt.a, tt.b)
	}
}

func TestCompare_Unparseable(t *testing.T) {
	// 无法解析时按字符串比较，不 panic
	assert.Equal(t, -1, Compare("abc", "abd"))
	assert.Equal(t, 0, Compare("develop", "develop"))
}

func TestLessOrEqualAtLeast(t *testing.T) {
	assert.True(t, LessOrEqual("1.2.13", "1.2.13"))
	assert.True(t, LessOrEqual("1.2.12", "1.2.13"))
	assert.False(t, LessOrEqual("1.3.0", "1.2.13"))
	assert.True(t, AtLeast("2.0.0", "2.0.0"))
	assert.False(t, AtLeast("1.9.7", "2.0.0"))
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, "1.8.6", Normalize("v1.8.6"))
	assert.Equal(t, "1.8.6", Normalize("1.8.6"))
	assert.Equal(t, "develop", Normalize("develop"))
	assert.Equal(t, "v", Normalize("v"))
}
