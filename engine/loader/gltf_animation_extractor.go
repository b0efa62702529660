package loader

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-anim/engine/model"
)

// gltfAnimationExtractorImpl is the implementation of the gltfAnimationExtractor interface.
type gltfAnimationExtractorImpl struct {
	parser gltfParser
	nodes  gltfNodeExtractor
}

// gltfAnimationExtractor converts glTF animations into clips whose channels are keyed by node name.
//
// glTF times are seconds, so every clip has TicksPerSecond 1 and a Duration equal to its last key time.
// A node animated on only some paths gets a single bind-pose key for the others, so a channel always
// reproduces the node's rest values where the asset does not animate it.
type gltfAnimationExtractor interface {
	// ExtractAnimation extracts a single animation by index.
	//
	// Parameters:
	//   - animIndex: the index of the animation in the document
	//
	// Returns:
	//   - *model.AnimationClip: the extracted animation clip
	//   - error: error if extraction fails
	ExtractAnimation(animIndex int) (*model.AnimationClip, error)

	// ExtractAllAnimations extracts every animation from the document, in document order.
	//
	// Returns:
	//   - []*model.AnimationClip: all extracted animation clips
	//   - error: error if extraction fails
	ExtractAllAnimations() ([]*model.AnimationClip, error)
}

var _ gltfAnimationExtractor = &gltfAnimationExtractorImpl{}

// newGLTFAnimationExtractor creates a new animation extractor for a parsed document.
//
// Parameters:
//   - parser: the parser containing a loaded document
//   - nodes: the node extractor used to resolve channel target names and bind transforms
//
// Returns:
//   - gltfAnimationExtractor: the animation extractor
func newGLTFAnimationExtractor(parser gltfParser, nodes gltfNodeExtractor) gltfAnimationExtractor {
	return &gltfAnimationExtractorImpl{parser: parser, nodes: nodes}
}

func (e *gltfAnimationExtractorImpl) ExtractAnimation(animIndex int) (*model.AnimationClip, error) {
	doc := e.parser.Document()
	if doc == nil {
		return nil, ErrNoDocument
	}
	if animIndex < 0 || animIndex >= len(doc.Animations) {
		return nil, fmt.Errorf("animation index %d out of range", animIndex)
	}

	anim := &doc.Animations[animIndex]
	name := anim.Name
	if name == "" {
		name = fmt.Sprintf("animation_%d", animIndex)
	}

	// Channels merge per target node, kept in first-appearance order.
	var (
		channels []model.AnimationChannel
		targets  []int
		byNode   = make(map[int]int)
		maxTime  float32
	)

	for i := range anim.Channels {
		ch := &anim.Channels[i]
		if ch.Target.Node == nil || ch.Target.Path == gltfAnimPathWeights {
			continue
		}
		nodeIndex := *ch.Target.Node

		if ch.Sampler < 0 || ch.Sampler >= len(anim.Samplers) {
			return nil, fmt.Errorf("animation %q channel %d: invalid sampler index %d", name, i, ch.Sampler)
		}
		sampler := &anim.Samplers[ch.Sampler]

		times, err := e.parser.ReadFloats(sampler.Input, gltfAccessorTypeScalar)
		if err != nil {
			return nil, fmt.Errorf("animation %q channel %d: key times: %w", name, i, err)
		}
		for _, t := range times {
			if t > maxTime {
				maxTime = t
			}
		}

		slot, exists := byNode[nodeIndex]
		if !exists {
			slot = len(channels)
			byNode[nodeIndex] = slot
			channels = append(channels, model.AnimationChannel{NodeName: e.nodes.NodeName(nodeIndex)})
			targets = append(targets, nodeIndex)
		}
		out := &channels[slot]

		cubic := sampler.Interpolation == gltfAnimInterpolationCubicSpline
		switch ch.Target.Path {
		case gltfAnimPathTranslation, gltfAnimPathScale:
			values, err := e.parser.ReadFloats(sampler.Output, gltfAccessorTypeVec3)
			if err != nil {
				return nil, fmt.Errorf("animation %q channel %d: %s values: %w", name, i, ch.Target.Path, err)
			}
			keys := make([]model.VectorKeyframe, 0, len(times))
			for j, t := range times {
				v, ok := gltfKeyValue(values, 3, j, cubic)
				if !ok {
					break
				}
				keys = append(keys, model.VectorKeyframe{Time: t, Value: [3]float32(v)})
			}
			if ch.Target.Path == gltfAnimPathTranslation {
				out.PositionKeys = keys
			} else {
				out.ScaleKeys = keys
			}

		case gltfAnimPathRotation:
			values, err := e.parser.ReadFloats(sampler.Output, gltfAccessorTypeVec4)
			if err != nil {
				return nil, fmt.Errorf("animation %q channel %d: rotation values: %w", name, i, err)
			}
			keys := make([]model.QuaternionKeyframe, 0, len(times))
			for j, t := range times {
				v, ok := gltfKeyValue(values, 4, j, cubic)
				if !ok {
					break
				}
				keys = append(keys, model.QuaternionKeyframe{Time: t, Value: [4]float32(v)})
			}
			out.RotationKeys = keys
		}
	}

	for slot, nodeIndex := range targets {
		e.fillRestKeys(&channels[slot], nodeIndex)
	}

	return &model.AnimationClip{
		Name:           name,
		Duration:       maxTime,
		TicksPerSecond: 1,
		Channels:       channels,
	}, nil
}

func (e *gltfAnimationExtractorImpl) ExtractAllAnimations() ([]*model.AnimationClip, error) {
	doc := e.parser.Document()
	if doc == nil {
		return nil, ErrNoDocument
	}

	clips := make([]*model.AnimationClip, len(doc.Animations))
	for i := range doc.Animations {
		clip, err := e.ExtractAnimation(i)
		if err != nil {
			return nil, fmt.Errorf("animation %d: %w", i, err)
		}
		clips[i] = clip
	}
	return clips, nil
}

// fillRestKeys gives every path the asset leaves unanimated a single key holding the node's bind value.
func (e *gltfAnimationExtractorImpl) fillRestKeys(ch *model.AnimationChannel, nodeIndex int) {
	rest := e.nodes.NodeTransform(nodeIndex)
	if len(ch.PositionKeys) == 0 {
		ch.PositionKeys = []model.VectorKeyframe{{Value: rest.Translation}}
	}
	if len(ch.RotationKeys) == 0 {
		ch.RotationKeys = []model.QuaternionKeyframe{{Value: rest.Rotation}}
	}
	if len(ch.ScaleKeys) == 0 {
		ch.ScaleKeys = []model.VectorKeyframe{{Value: rest.Scale}}
	}
}

// gltfKeyValue returns the value of key j from a flat sampler output.
// Cubic spline outputs store (in-tangent, value, out-tangent) per key; only the value is used.
func gltfKeyValue(values []float32, width, j int, cubic bool) ([]float32, bool) {
	start := j * width
	if cubic {
		start = (j*3 + 1) * width
	}
	if start+width > len(values) {
		return nil, false
	}
	return values[start : start+width], true
}
