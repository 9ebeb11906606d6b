package metanote

import (
	"github.com/simonhull/metanote/internal/types"
)

// AudioInfo is an alias to types.AudioInfo.
// Re-exported from internal/types so callers never import internal packages.
type AudioInfo = types.AudioInfo
