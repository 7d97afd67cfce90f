package migrate

import (
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPending(t *testing.T) {
	fsys := fstest.MapFS{
		"0002_indexes_up.sql":   {Data: []byte("SELECT 2")},
		"0001_init_up.sql":      {Data: []byte("SELECT 1")},
		"0001_init_down.sql":    {Data: []byte("SELECT -1")},
		"notes.txt":             {Data: []byte("ignored")},
		"draft_up.sql":          {Data: []byte("no version prefix")},
		"0010_staff_idx_up.sql": {Data: []byte("SELECT 10")},
	}
	r := Runner{Dir: "."}

	t.Run("按版本排序且只取 up 文件", func(t *testing.T) {
		files, err := r.Pending(fsys, nil)
		require.NoError(t, err)
		require.Len(t, files, 3)
		assert.Equal(t, []int64{1, 2, 10}, []int64{files[0].Version, files[1].Version, files[2].Version})
	})

	t.Run("跳过已应用版本", func(t *testing.T) {
		files, err := r.Pending(fsys, map[int64]bool{1: true, 2: true})
		require.NoError(t, err)
		require.Len(t, files, 1)
		assert.Equal(t, "0010_staff_idx_up.sql", files[0].Path)
	})
}
