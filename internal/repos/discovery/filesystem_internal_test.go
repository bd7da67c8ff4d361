package discovery

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRelativePathComponents(testInstance *testing.T) {
	root := filepath.Join(string(filepath.Separator), "srv", "code")

	testCases := []struct {
		name      string
		directory string
		expected  []string
	}{
		{name: "root_itself", directory: root, expected: nil},
		{name: "direct_child", directory: filepath.Join(root, "tools"), expected: []string{"tools"}},
		{name: "nested_child", directory: filepath.Join(root, "group", ".cache", "app"), expected: []string{"group", ".cache", "app"}},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			require.Equal(testInstance, testCase.expected, relativePathComponents(root, testCase.directory))
		})
	}
}
