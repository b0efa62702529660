package animation

import (
	"github.com/Carmen-Shannon/oxy-anim/engine/model"
	"github.com/Carmen-Shannon/oxy-anim/engine/skeleton"
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
)

// DefaultTicksPerSecond is used when a clip does not declare its sample rate.
const DefaultTicksPerSecond float32 = 25

// AnimationTimeTicks converts accumulated seconds into a clip-local time in ticks,
// wrapped into [0, Duration).
// A nil clip or a clip with no positive duration yields 0.
//
// Parameters:
//   - clip: the active clip, may be nil
//   - elapsed: accumulated playback time in seconds
//
// Returns:
//   - float32: the animation time in ticks
func AnimationTimeTicks(clip *model.AnimationClip, elapsed float32) float32 {
	if !playable(clip) {
		return 0
	}
	t := math32.Mod(elapsed*ticksPerSecond(clip), clip.Duration)
	if t < 0 {
		t += clip.Duration
	}
	return t
}

// ClipSeconds returns how long one loop of a clip lasts in seconds, or 0 for an unplayable clip.
func ClipSeconds(clip *model.AnimationClip) float32 {
	if !playable(clip) {
		return 0
	}
	return clip.Duration / ticksPerSecond(clip)
}

func ticksPerSecond(clip *model.AnimationClip) float32 {
	if clip.TicksPerSecond == 0 {
		return DefaultTicksPerSecond
	}
	return clip.TicksPerSecond
}

// playable reports whether a clip drives node transforms.
func playable(clip *model.AnimationClip) bool {
	return clip != nil && clip.Duration > 0 && len(clip.Channels) > 0
}

// visit is one pending node on the traversal stack together with its parent's global transform.
type visit struct {
	node   int
	parent mgl32.Mat4
}

// Evaluator walks a node hierarchy and writes final bone transforms.
// The zero value is ready to use. An Evaluator reuses its traversal stack across calls and
// must not be shared between goroutines.
type Evaluator struct {
	stack []visit
}

// Evaluate performs one pre-order traversal of nodes starting at the root (index 0) with an
// identity parent transform.
//
// For each node the local transform is sampled from the clip's channel for that node name, or
// taken from the node's bind transform when the node has no channel or the clip is not playable.
// The node's global transform is parent * local. When the node name is a known bone, its final
// transform becomes globalInverse * global * offset.
// Children are visited in arena order.
//
// Parameters:
//   - nodes: the node arena, root at index 0
//   - clip: the active clip, may be nil
//   - t: the animation time in ticks
//   - bones: the bone name index
//   - globalInverse: the inverse of the root bind transform
//   - out: the bone table to write final transforms into
func (e *Evaluator) Evaluate(
	nodes []model.Node,
	clip *model.AnimationClip,
	t float32,
	bones *skeleton.BoneIndex,
	globalInverse mgl32.Mat4,
	out *skeleton.BoneInfoTable,
) {
	if len(nodes) == 0 {
		return
	}
	if !playable(clip) {
		clip = nil
	}

	e.stack = append(e.stack[:0], visit{node: 0, parent: mgl32.Ident4()})
	for len(e.stack) > 0 {
		v := e.stack[len(e.stack)-1]
		e.stack = e.stack[:len(e.stack)-1]
		node := &nodes[v.node]

		local := node.Transform
		if clip != nil {
			if ch, ok := clip.Channel(node.Name); ok {
				local = ChannelTransform(ch, t)
			}
		}
		global := v.parent.Mul4(local)

		if id, ok := bones.Lookup(node.Name); ok && int(id) < out.Len() {
			out.SetFinal(id, globalInverse.Mul4(global).Mul4(out.Offset(id)))
		}

		// Push in reverse so the first child is popped first.
		for i := len(node.Children) - 1; i >= 0; i-- {
			e.stack = append(e.stack, visit{node: node.Children[i], parent: global})
		}
	}
}
