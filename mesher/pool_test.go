package mesher

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/johnbchron/mage-corp-sub000/field"
)

func TestPoolServesConcurrentRequests(t *testing.T) {
	p := NewPool(New(), 4)
	defer p.Close()

	shapes := []field.Expr{
		field.Sub(field.Norm(), field.Num(1)),
		field.Sub(field.Norm(), field.Num(0.5)),
		field.Sub(field.Norm(), field.Num(0.8)),
		unitCube(),
	}
	var chans []<-chan Result
	for _, s := range shapes {
		chans = append(chans, p.Submit(context.Background(), MeshRequest{
			Shape: s,
			Region: Region{
				Scale:  r3.Vec{X: 1.5, Y: 1.5, Z: 1.5},
				Detail: Exact(8),
			},
		}))
	}
	for i, ch := range chans {
		select {
		case res := <-ch:
			require.NoError(t, res.Err, "request %d", i)
			require.NotNil(t, res.Mesh)
			require.False(t, res.Mesh.Empty(), "request %d", i)
		case <-time.After(30 * time.Second):
			t.Fatalf("request %d timed out", i)
		}
	}
}

func TestPoolCanceledSubmit(t *testing.T) {
	p := NewPool(New(), 1)
	defer p.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	res := <-p.Submit(ctx, MeshRequest{
		Shape: unitSphere(),
		Region: Region{
			Scale:  r3.Vec{X: 1, Y: 1, Z: 1},
			Detail: Exact(8),
		},
	})
	require.ErrorIs(t, res.Err, context.Canceled)
}

func TestPoolClosedSubmit(t *testing.T) {
	p := NewPool(New(), 1)
	p.Close()

	res := <-p.Submit(context.Background(), MeshRequest{
		Shape: unitSphere(),
		Region: Region{
			Scale:  r3.Vec{X: 1, Y: 1, Z: 1},
			Detail: Exact(8),
		},
	})
	require.ErrorIs(t, res.Err, ErrPoolClosed)
}

func TestPoolCloseIdempotent(t *testing.T) {
	p := NewPool(New(), 2)
	p.Close()
	p.Close()
}
