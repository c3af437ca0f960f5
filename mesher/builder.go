package mesher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/chewxy/math32"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/johnbchron/mage-corp-sub000/cache"
	"github.com/johnbchron/mage-corp-sub000/collider"
	"github.com/johnbchron/mage-corp-sub000/field"
	"github.com/johnbchron/mage-corp-sub000/field/eval"
	"github.com/johnbchron/mage-corp-sub000/mesh"
	"github.com/johnbchron/mage-corp-sub000/render"
)

// Errors surfaced to callers. Cache failures are never among them.
var (
	ErrCompile           = errors.New("shape compilation failed")
	ErrEval              = errors.New("field evaluation failed")
	ErrResourceExhausted = errors.New("sample grid exceeds resource budget")
)

// Builder runs mesh requests. The zero value is not usable; construct
// with New. A Builder is safe for concurrent use.
type Builder struct {
	store   *cache.Store
	log     *slog.Logger
	policy  collider.Policy
	budget  int
	extract func(*eval.Tape, int, int, int) (*mesh.BufMesh, error)
}

// BuilderOption configures a Builder.
type BuilderOption func(*Builder)

// WithCache fronts the pipeline with a disk cache. Without one every
// request recomputes.
func WithCache(s *cache.Store) BuilderOption {
	return func(b *Builder) { b.store = s }
}

// WithLogger routes builder diagnostics to log instead of slog.Default.
func WithLogger(log *slog.Logger) BuilderOption {
	return func(b *Builder) { b.log = log }
}

// WithColliderPolicy sets the policy used when a request asks for a
// collider. The default is convex decomposition.
func WithColliderPolicy(p collider.Policy) BuilderOption {
	return func(b *Builder) { b.policy = p }
}

// WithGridBudget caps the total sample count per request. The default
// is render.MaxGridSamples.
func WithGridBudget(n int) BuilderOption {
	return func(b *Builder) { b.budget = n }
}

// New returns a Builder with the given options applied.
func New(opts ...BuilderOption) *Builder {
	b := &Builder{
		log:     slog.Default(),
		policy:  collider.DefaultPolicy(),
		budget:  render.MaxGridSamples,
		extract: render.SurfaceNets,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// BuildMesh runs one request start to finish: cache lookup, then on a
// miss normalize, compile, sample, extract, prune, denormalize,
// simplify and store, with an optional collider derived at the end.
// Cancellation is observed between stages; the core stages themselves
// are CPU-bound and run to completion once started. An empty mesh is a
// successful result and yields a nil collider.
func (b *Builder) BuildMesh(ctx context.Context, req MeshRequest) (*mesh.BufMesh, *collider.Shape, error) {
	if err := req.Region.validate(); err != nil {
		return nil, nil, err
	}
	key := req.Hash()
	if b.store != nil {
		if m, ok := b.store.LoadMesh(key); ok {
			shape, err := b.colliderFor(ctx, req, m)
			if err != nil {
				return nil, nil, err
			}
			return m, shape, nil
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}

	m, err := b.compute(ctx, req)
	if err != nil {
		return nil, nil, err
	}
	if b.store != nil {
		b.store.StoreMesh(key, m)
	}
	shape, err := b.colliderFor(ctx, req, m)
	if err != nil {
		return nil, nil, err
	}
	return m, shape, nil
}

func (b *Builder) compute(ctx context.Context, req MeshRequest) (*mesh.BufMesh, error) {
	normalized := field.Normalize(req.Shape, req.Region.Position, req.Region.Scale)
	tape, err := eval.Compile(normalized)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCompile, err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// Interval pre-pass: a region the field provably never crosses zero
	// in produces an empty mesh without sampling the grid.
	span := eval.Interval{Lo: -1, Hi: 1}
	if iv := tape.EvalInterval(span, span, span); iv.StrictlyPositive() || iv.StrictlyNegative() {
		return &mesh.BufMesh{}, nil
	}

	nx, ny, nz := req.Region.Detail.voxels(req.Region.Scale)
	// Checked factor by factor so huge counts cannot overflow the product.
	sx, sy, sz := nx+1, ny+1, nz+1
	if sx > b.budget || sy > b.budget/sx || sz > b.budget/(sx*sy) {
		return nil, fmt.Errorf("%w: %dx%dx%d samples over budget %d",
			ErrResourceExhausted, sx, sy, sz, b.budget)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m, err := b.extract(tape, nx, ny, nz)
	if err != nil {
		if errors.Is(err, render.ErrGridTooLarge) {
			return nil, fmt.Errorf("%w: %v", ErrResourceExhausted, err)
		}
		return nil, fmt.Errorf("%w: %v", ErrEval, err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if req.Region.Prune {
		m = render.Prune(m, 1)
	}
	denormalize(m, req.Region.Position, req.Region.Scale)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if req.Region.Simplify && !m.Empty() {
		simplified, err := mesh.Simplify(m)
		if err != nil {
			b.log.Warn("simplification failed, keeping unsimplified mesh", "err", err)
		} else {
			m = simplified
		}
	}
	return m, nil
}

// colliderFor derives the request's collider, preferring the cache. The
// collider cache key depends on the final mesh content so it stays
// coherent with whatever the mesh cache returned.
func (b *Builder) colliderFor(ctx context.Context, req MeshRequest, m *mesh.BufMesh) (*collider.Shape, error) {
	if !req.NeedCollider || m.Empty() {
		return nil, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	key := colliderKey(m, b.policy)
	if b.store != nil {
		if shape, ok := b.store.LoadCollider(key); ok {
			return shape, nil
		}
	}
	shape, err := collider.Build(m, b.policy)
	if err != nil {
		return nil, err
	}
	if b.store != nil && shape != nil {
		b.store.StoreCollider(key, shape)
	}
	return shape, nil
}

// denormalize maps mesh geometry from [-1,1]³ node coordinates back to
// the world region. Positions go through the forward affine; normals
// transform by the inverse scale and are renormalized, since anisotropic
// regions shear directions.
func denormalize(m *mesh.BufMesh, center, halfExtent r3.Vec) {
	m.Transform(func(p r3.Vec) r3.Vec {
		return r3.Vec{
			X: p.X*halfExtent.X + center.X,
			Y: p.Y*halfExtent.Y + center.Y,
			Z: p.Z*halfExtent.Z + center.Z,
		}
	})
	sx := float32(halfExtent.X)
	sy := float32(halfExtent.Y)
	sz := float32(halfExtent.Z)
	for i := range m.Normals {
		n := &m.Normals[i]
		n[0] /= sx
		n[1] /= sy
		n[2] /= sz
		l := math32.Sqrt(n[0]*n[0] + n[1]*n[1] + n[2]*n[2])
		if l > 0 {
			n[0] /= l
			n[1] /= l
			n[2] /= l
		}
	}
}
