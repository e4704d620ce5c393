package resolver

import (
	"fmt"
	"strings"

	"github.com/remake-build/remake/internal/artifact"
)

// UnresolvedTargetError reports a requested artifact that no rule
// produces and that is not an existing source file.
type UnresolvedTargetError struct {
	Artifact artifact.Artifact
}

func (e *UnresolvedTargetError) Error() string {
	return fmt.Sprintf("no rule to make %s", e.Artifact.Name())
}

// DependencyCycleError reports a target revisited while its own
// resolution was still in progress.
type DependencyCycleError struct {
	Chain []string
}

func (e *DependencyCycleError) Error() string {
	return fmt.Sprintf("dependency cycle: %s", strings.Join(e.Chain, " -> "))
}

// trimKey strips the class prefix off an artifact key for display.
func trimKey(key string) string {
	if i := strings.IndexByte(key, 0); i >= 0 {
		return key[i+1:]
	}
	return key
}
