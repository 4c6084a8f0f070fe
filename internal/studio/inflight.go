package studio

import (
	"fmt"
	"slices"

	"promptarchitect/internal/domain"
)

// opClass groups operations that must not overlap with themselves.
// Synthesize, ApplyStyle and ChatRefine share the result slot and so one class.
type opClass string

const (
	classExtract opClass = "extract"
	classRender  opClass = "render"
	classPublish opClass = "publish"
	classLibrary opClass = "library"
)

// beginLocked marks class in flight. Callers hold c.mu.
func (c *Coordinator) beginLocked(class opClass) error {
	if _, busy := c.inflight[class]; busy {
		return fmt.Errorf("%w: %s", domain.ErrBusy, class)
	}
	c.inflight[class] = struct{}{}
	return nil
}

func (c *Coordinator) end(class opClass) {
	c.mu.Lock()
	delete(c.inflight, class)
	c.mu.Unlock()
}

func (c *Coordinator) inflightLocked() []string {
	out := make([]string, 0, len(c.inflight))
	for class := range c.inflight {
		out = append(out, string(class))
	}
	slices.Sort(out)
	return out
}

func (c *Coordinator) renderingLocked() bool {
	_, extracting := c.inflight[classExtract]
	_, rendering := c.inflight[classRender]
	return extracting || rendering
}
