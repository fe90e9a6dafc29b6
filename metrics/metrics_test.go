package metrics

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrometheus(t *testing.T) {
	t.Run("Should count transforms and artifacts", func(t *testing.T) {
		p := NewPrometheus()

		p.TransformDone("build", "ok")
		p.TransformDone("build", "ok")
		p.TransformDone("serve", "declined")
		p.ArtifactEmitted("webp")
		p.VariantRendered("webp", 20*time.Millisecond, 1024)

		assert.Equal(t, 2.0, testutil.ToFloat64(p.transforms.WithLabelValues("build", "ok")))
		assert.Equal(t, 1.0, testutil.ToFloat64(p.transforms.WithLabelValues("serve", "declined")))
		assert.Equal(t, 1.0, testutil.ToFloat64(p.artifacts.WithLabelValues("webp")))
		assert.Equal(t, 1024.0, testutil.ToFloat64(p.bytes.WithLabelValues("webp")))
	})

	t.Run("Should write a textfile", func(t *testing.T) {
		p := NewPrometheus()
		p.ArtifactEmitted("png")

		path := filepath.Join(t.TempDir(), "srcset.prom")
		require.NoError(t, p.WriteTextfile(path))

		data, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Contains(t, string(data), `srcset_artifacts_emitted_total{format="png"} 1`)
	})
}
