// Copyright 2024 PingCAP, Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// See the License for the specific language governing permissions and
// limitations under the License.

package actor

import (
	"context"
	"testing"
	"time"

	"github.com/pingcap/errors"
	"github.com/pingcap/semrestaurant/pkg/clock"
	cerrors "github.com/pingcap/semrestaurant/pkg/errors"
	"github.com/pingcap/semrestaurant/pkg/leakutil"
	"github.com/pingcap/semrestaurant/pkg/model"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"
)

func TestMain(m *testing.M) {
	leakutil.SetUpLeakTest(m)
}

func TestSystemRunsActors(t *testing.T) {
	t.Parallel()

	sys := NewSystem(context.Background(), t.Name(), clock.New())
	release := make(chan struct{})
	require.NoError(t, sys.Spawn(model.ChefActor(), Func(func(ctx context.Context) error {
		<-release
		return nil
	})))
	require.NoError(t, sys.Spawn(model.GroupActor(0), Func(func(ctx context.Context) error {
		return nil
	})))
	err := sys.Spawn(model.ChefActor(), Func(func(ctx context.Context) error { return nil }))
	require.True(t, cerrors.ErrActorAlreadyExists.Equal(err))
	sys.Seal()

	err = sys.Spawn(model.WaiterActor(), Func(func(ctx context.Context) error { return nil }))
	require.True(t, cerrors.ErrInvalidArgument.Equal(err))

	require.Eventually(t, func() bool {
		return !sys.Alive(model.GroupActor(0))
	}, 5*time.Second, 5*time.Millisecond)
	require.True(t, sys.Alive(model.ChefActor()))
	require.False(t, sys.Alive(model.WaiterActor()))
	select {
	case <-sys.Done():
		t.Fatal("done must wait for the chef")
	default:
	}

	close(release)
	require.NoError(t, sys.Wait())
	require.False(t, sys.Alive(model.ChefActor()))
	require.Equal(t, []model.ActorID{model.ChefActor(), model.GroupActor(0)}, sys.Actors())
}

func TestSystemCollectsFailures(t *testing.T) {
	t.Parallel()

	sys := NewSystem(context.Background(), t.Name(), clock.New())
	boom := errors.New("boom")
	require.NoError(t, sys.Spawn(model.WaiterActor(), Func(func(ctx context.Context) error {
		return cerrors.ErrUnexpectedRequest.GenWithStackByArgs("waiter", "TABLE_REQUEST(group=0)")
	})))
	require.NoError(t, sys.Spawn(model.GroupActor(1), Func(func(ctx context.Context) error {
		return boom
	})))
	require.NoError(t, sys.Spawn(model.GroupActor(2), Func(func(ctx context.Context) error {
		return nil
	})))
	sys.Seal()

	err := sys.Wait()
	errs := multierr.Errors(err)
	require.Len(t, errs, 2)
	require.True(t, cerrors.Is(errs[0], cerrors.ErrActorFailed))
	require.True(t, cerrors.Is(errs[0], cerrors.ErrUnexpectedRequest))
	require.Contains(t, errs[0].Error(), "waiter")
	require.Equal(t, boom, errors.Cause(errs[1]))
	require.Contains(t, errs[1].Error(), "group-01")
}

func TestSystemTerminate(t *testing.T) {
	t.Parallel()

	sys := NewSystem(context.Background(), t.Name(), clock.New())
	for g := 0; g < 3; g++ {
		require.NoError(t, sys.Spawn(model.GroupActor(model.GroupID(g)), Func(func(ctx context.Context) error {
			<-ctx.Done()
			return errors.Trace(ctx.Err())
		})))
	}
	sys.Seal()

	select {
	case <-sys.Done():
		t.Fatal("actors must block until terminated")
	case <-time.After(20 * time.Millisecond):
	}

	sys.Terminate()
	sys.Terminate()
	require.NoError(t, sys.Wait())
	for g := 0; g < 3; g++ {
		require.False(t, sys.Alive(model.GroupActor(model.GroupID(g))))
	}
}

func TestSystemElapsedUsesClock(t *testing.T) {
	t.Parallel()

	mock := clock.NewMock()
	sys := NewSystem(context.Background(), t.Name(), mock)
	started := make(chan struct{})
	release := make(chan struct{})
	require.NoError(t, sys.Spawn(model.ChefActor(), Func(func(ctx context.Context) error {
		close(started)
		<-release
		return nil
	})))
	sys.Seal()

	<-started
	mock.Add(3 * time.Second)
	close(release)
	require.NoError(t, sys.Wait())
	require.Equal(t, 3*time.Second, sys.Elapsed(model.ChefActor()))
	require.Equal(t, time.Duration(0), sys.Elapsed(model.WaiterActor()))
}

func TestMetrics(t *testing.T) {
	registry := prometheus.NewRegistry()
	InitMetrics(registry)

	sys := NewSystem(context.Background(), t.Name(), clock.New())
	release := make(chan struct{})
	require.NoError(t, sys.Spawn(model.ChefActor(), Func(func(ctx context.Context) error {
		<-release
		return nil
	})))
	require.Equal(t, float64(1), testutil.ToFloat64(totalWorkers.WithLabelValues(t.Name())))
	require.Equal(t, float64(1), testutil.ToFloat64(workingWorkers.WithLabelValues(t.Name())))
	sys.Seal()
	close(release)
	require.NoError(t, sys.Wait())
	require.Equal(t, float64(0), testutil.ToFloat64(workingWorkers.WithLabelValues(t.Name())))

	require.Eventually(t, func() bool {
		return testutil.ToFloat64(totalWorkers.WithLabelValues(t.Name())) == 0
	}, 5*time.Second, 5*time.Millisecond)
}
