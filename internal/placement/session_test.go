// Vigilmap - Camera Coverage and Live Detection Monitoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vigilmap
package placement

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/tomtom215/vigilmap/internal/camera"
	"github.com/tomtom215/vigilmap/internal/coverage"
	"github.com/tomtom215/vigilmap/internal/fov"
	"github.com/tomtom215/vigilmap/internal/geo"
	"github.com/tomtom215/vigilmap/internal/logging"
	"github.com/tomtom215/vigilmap/internal/viewport"
)

func init() {
	logging.Init(logging.Config{Level: "info", Output: io.Discard})
}

type recordingPersister struct {
	mu        sync.Mutex
	cameras   [][]camera.Camera
	coverages []coverage.Circle
	err       error
}

func (p *recordingPersister) SaveCameras(_ context.Context, cams []camera.Camera) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cameras = append(p.cameras, cams)
	return p.err
}

func (p *recordingPersister) SaveCoverage(_ context.Context, c coverage.Circle) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.coverages = append(p.coverages, c)
	return p.err
}

type recordingBroadcaster struct {
	mu       sync.Mutex
	types    []string
	payloads []interface{}
}

func (b *recordingBroadcaster) BroadcastJSON(messageType string, data interface{}) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.types = append(b.types, messageType)
	b.payloads = append(b.payloads, data)
}

// last returns the most recent payload broadcast as messageType.
func (b *recordingBroadcaster) last(messageType string) (interface{}, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i := len(b.types) - 1; i >= 0; i-- {
		if b.types[i] == messageType {
			return b.payloads[i], true
		}
	}
	return nil, false
}

// lastTriangles decodes the triangles of the most recent cameras_updated.
func (b *recordingBroadcaster) lastTriangles(t *testing.T) []fov.Triangle {
	t.Helper()
	payload, ok := b.last(MessageCamerasUpdated)
	if !ok {
		t.Fatal("no cameras_updated broadcast")
	}
	m, ok := payload.(map[string]interface{})
	if !ok {
		t.Fatalf("payload type %T", payload)
	}
	tris, ok := m["triangles"].([]fov.Triangle)
	if !ok {
		t.Fatalf("triangles type %T", m["triangles"])
	}
	return tris
}

func (b *recordingBroadcaster) count(messageType string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := 0
	for _, t := range b.types {
		if t == messageType {
			n++
		}
	}
	return n
}

type fixture struct {
	ctrl      *Controller
	registry  *camera.Registry
	calc      *coverage.Calculator
	sync      *viewport.Synchronizer
	persister *recordingPersister
	bc        *recordingBroadcaster
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	n := 0
	reg := camera.NewRegistry(func() string {
		n++
		return fmt.Sprintf("cam_%d", n)
	})
	calc := coverage.NewCalculator()
	vs := viewport.NewSynchronizer(viewport.State{Zoom: 13},
		viewport.NewMercatorSurface(viewport.SurfacePlacement, 800, 600, 20),
		viewport.NewMercatorSurface(viewport.SurfaceMonitoring, 800, 600, 20),
	)
	p := &recordingPersister{}
	bc := &recordingBroadcaster{}
	ctrl := NewController(Config{Registry: reg, Coverage: calc, Viewport: vs, Persister: p, Broadcaster: bc})
	return &fixture{ctrl: ctrl, registry: reg, calc: calc, sync: vs, persister: p, bc: bc}
}

func TestEditsRequireActiveSession(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()

	checks := map[string]error{}
	_, checks["click"] = f.ctrl.Click(1, 1)
	checks["remove"] = f.ctrl.Remove("cam_1")
	checks["drag start"] = f.ctrl.DragStart("cam_1")
	_, checks["drag end"] = f.ctrl.DragEnd("cam_1", 1, 1)
	_, checks["direction"] = f.ctrl.SetDirection("cam_1", 10)
	_, checks["radius"] = f.ctrl.SetRadius("cam_1", 10)
	_, checks["pose"] = f.ctrl.UpdatePose("cam_1", nil, nil)
	_, checks["commit"] = f.ctrl.Commit(ctx)
	checks["cancel"] = f.ctrl.Cancel(ctx)

	for name, err := range checks {
		if !errors.Is(err, ErrSessionInactive) {
			t.Errorf("%s: expected ErrSessionInactive, got %v", name, err)
		}
	}

	if _, err := f.ctrl.Begin(); err != nil {
		t.Fatal(err)
	}
	if _, err := f.ctrl.Begin(); !errors.Is(err, ErrSessionActive) {
		t.Errorf("second Begin: expected ErrSessionActive, got %v", err)
	}
}

func TestCommitScenario(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()

	if _, err := f.ctrl.Begin(); err != nil {
		t.Fatal(err)
	}
	a, _ := f.ctrl.Click(18.5204, 73.8567)
	b, _ := f.ctrl.Click(18.5250, 73.8600)

	if a.Name != "Camera 1" || b.Name != "Camera 2" || a.FOVRadius != 20 || a.Direction != 0 {
		t.Errorf("unexpected defaults: %+v %+v", a, b)
	}
	if len(f.ctrl.Triangles()) != 2 {
		t.Fatalf("expected one triangle per camera")
	}

	res, err := f.ctrl.Commit(ctx)
	if err != nil {
		t.Fatalf("Commit() error = %v", err)
	}

	if math.Abs(res.Coverage.Center.Lat-18.5227) > 1e-4 || math.Abs(res.Coverage.Center.Lng-73.8584) > 1e-4 {
		t.Errorf("coverage center = %+v", res.Coverage.Center)
	}
	sep := geo.Distance(a.Position(), b.Position())
	if math.Abs(res.Coverage.RadiusMeters-1.2*sep/2) > 1 {
		t.Errorf("coverage radius = %v, want about %v", res.Coverage.RadiusMeters, 1.2*sep/2)
	}
	if res.Viewport.Zoom > viewport.MaxFitZoom {
		t.Errorf("viewport zoom = %d", res.Viewport.Zoom)
	}
	if f.sync.State() != res.Viewport {
		t.Error("viewport synchronizer not updated")
	}

	st := f.ctrl.Status()
	if st.State != StateInactive || st.LastOutcome != StateCommitted {
		t.Errorf("status after commit = %+v", st)
	}
	if len(f.persister.cameras) != 1 || len(f.persister.cameras[0]) != 2 || len(f.persister.coverages) != 1 {
		t.Errorf("persistence calls: cameras=%d coverages=%d", len(f.persister.cameras), len(f.persister.coverages))
	}
	if f.bc.count(MessageCoverageUpdated) != 1 {
		t.Error("expected a coverage broadcast")
	}
}

func TestCommitWithZeroCamerasStaysActive(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	_, _ = f.ctrl.Begin()

	_, err := f.ctrl.Commit(ctx)
	if !errors.Is(err, ErrEmptyCommit) {
		t.Fatalf("expected ErrEmptyCommit, got %v", err)
	}
	if err.Error() != EmptyCommitWarning {
		t.Errorf("warning text = %q", err.Error())
	}
	if st := f.ctrl.Status(); st.State != StateActive {
		t.Errorf("state = %s, want active", st.State)
	}
	if _, ok := f.calc.Current(); ok {
		t.Error("rejected commit must not produce coverage")
	}
	if len(f.persister.cameras) != 0 {
		t.Error("rejected commit must not persist")
	}

	// Removing the last camera and committing is also rejected.
	c, _ := f.ctrl.Click(1, 1)
	_ = f.ctrl.Remove(c.ID)
	if _, err := f.ctrl.Commit(ctx); !errors.Is(err, ErrEmptyCommit) {
		t.Errorf("expected ErrEmptyCommit after removal, got %v", err)
	}
}

func TestCancelRollsBack(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()

	_, _ = f.ctrl.Begin()
	kept, _ := f.ctrl.Click(10, 10)
	if _, err := f.ctrl.Commit(ctx); err != nil {
		t.Fatal(err)
	}
	committed, _ := f.calc.Current()

	_, _ = f.ctrl.Begin()
	_, _ = f.ctrl.Click(11, 11)
	_, _ = f.ctrl.SetDirection(kept.ID, 180)
	_, _ = f.ctrl.DragEnd(kept.ID, 12, 12)
	_, _ = f.ctrl.ToggleControls(kept.ID)

	if err := f.ctrl.Cancel(ctx); err != nil {
		t.Fatalf("Cancel() error = %v", err)
	}

	cams := f.registry.List()
	if len(cams) != 1 || cams[0] != kept {
		t.Errorf("registry after cancel = %+v, want [%+v]", cams, kept)
	}
	tris := f.ctrl.Triangles()
	if len(tris) != 1 || tris[0].Vertices[0] != kept.Position() {
		t.Errorf("triangles not rebuilt: %+v", tris)
	}
	if got, _ := f.calc.Current(); got != committed {
		t.Error("cancel must not touch coverage")
	}
	if st := f.ctrl.Status(); st.State != StateInactive || st.LastOutcome != StateCancelled {
		t.Errorf("status after cancel = %+v", st)
	}
	if !f.ctrl.ControlsVisible(kept.ID) {
		t.Error("control visibility of surviving camera should be kept")
	}
}

func TestEscapeCancels(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()

	if handled, _ := f.ctrl.HandleKey(ctx, KeyEscape); handled {
		t.Error("Escape outside a session should be ignored")
	}

	_, _ = f.ctrl.Begin()
	_, _ = f.ctrl.Click(1, 1)

	if handled, _ := f.ctrl.HandleKey(ctx, "Enter"); handled {
		t.Error("Enter should be ignored")
	}
	handled, err := f.ctrl.HandleKey(ctx, KeyEscape)
	if err != nil || !handled {
		t.Fatalf("HandleKey(Escape) = %v, %v", handled, err)
	}
	if f.registry.Len() != 0 {
		t.Error("Escape should roll back the placed camera")
	}
}

func TestDragLifecycle(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	_, _ = f.ctrl.Begin()
	cam, _ := f.ctrl.Click(1, 1)

	if err := f.ctrl.DragStart(cam.ID); err != nil {
		t.Fatal(err)
	}
	if tri, _ := f.ctrl.Triangle(cam.ID); !tri.Dragging {
		t.Error("expected dragging after DragStart")
	}

	moved, err := f.ctrl.DragEnd(cam.ID, 2, 3)
	if err != nil {
		t.Fatal(err)
	}
	tri, _ := f.ctrl.Triangle(cam.ID)
	if tri.Dragging {
		t.Error("expected dragging cleared after DragEnd")
	}
	if tri.Vertices[0] != (geo.LatLng{Lat: 2, Lng: 3}) || moved.Lat != 2 || moved.Lng != 3 {
		t.Errorf("triangle origin %+v, camera %+v", tri.Vertices[0], moved)
	}

	tris := f.bc.lastTriangles(t)
	if len(tris) != 1 {
		t.Fatalf("broadcast triangles = %d, want 1", len(tris))
	}
	if tris[0].Dragging {
		t.Error("last cameras_updated after DragEnd still reports is_dragging")
	}
	if tris[0].Vertices[0] != (geo.LatLng{Lat: 2, Lng: 3}) {
		t.Errorf("broadcast triangle origin = %+v, want the drop position", tris[0].Vertices[0])
	}

	if err := f.ctrl.DragStart("cam_missing"); !errors.Is(err, camera.ErrCameraNotFound) {
		t.Errorf("expected ErrCameraNotFound, got %v", err)
	}
}

func TestUpdatePose(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	_, _ = f.ctrl.Begin()
	cam, _ := f.ctrl.Click(0, 0)
	before := f.bc.count(MessageCamerasUpdated)

	dir, radius := 90.0, 40.0
	got, err := f.ctrl.UpdatePose(cam.ID, &dir, &radius)
	if err != nil {
		t.Fatal(err)
	}
	if got.Direction != 90 || got.FOVRadius != 40 {
		t.Errorf("camera = %+v, want direction 90 radius 40", got)
	}
	if n := f.bc.count(MessageCamerasUpdated) - before; n != 1 {
		t.Errorf("cameras_updated broadcasts = %d, want 1", n)
	}
	tris := f.bc.lastTriangles(t)
	if len(tris) != 1 {
		t.Fatalf("broadcast triangles = %d, want 1", len(tris))
	}
	if diff := cmp.Diff(fov.Compute(&got), tris[0].Vertices); diff != "" {
		t.Errorf("broadcast triangle mismatch (-want +got):\n%s", diff)
	}

	radiusOnly := 15.0
	if got, err = f.ctrl.UpdatePose(cam.ID, nil, &radiusOnly); err != nil {
		t.Fatal(err)
	}
	if got.Direction != 90 || got.FOVRadius != 15 {
		t.Errorf("camera = %+v, want direction kept at 90", got)
	}

	if _, err := f.ctrl.UpdatePose("cam_missing", &dir, nil); !errors.Is(err, camera.ErrCameraNotFound) {
		t.Errorf("expected ErrCameraNotFound, got %v", err)
	}
}

func TestRadiusAndDirectionRecompute(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	_, _ = f.ctrl.Begin()
	cam, _ := f.ctrl.Click(0, 0)

	before, _ := f.ctrl.Triangle(cam.ID)
	if _, err := f.ctrl.SetRadius(cam.ID, 500); err != nil {
		t.Fatal(err)
	}
	after, _ := f.ctrl.Triangle(cam.ID)

	stored, _ := f.registry.Get(cam.ID)
	if stored.FOVRadius != 500 {
		t.Errorf("stored radius = %v, want raw 500", stored.FOVRadius)
	}
	d := geo.DegreesToMeters(math.Hypot(after.Vertices[1].Lat, after.Vertices[1].Lng))
	if math.Abs(d-camera.MaxFOVRadius) > 1e-6 {
		t.Errorf("arc radius %v, want clamped %v", d, camera.MaxFOVRadius)
	}
	if before.Vertices[1] == after.Vertices[1] {
		t.Error("triangle not recomputed after radius change")
	}

	_, _ = f.ctrl.SetDirection(cam.ID, 90)
	rotated, _ := f.ctrl.Triangle(cam.ID)
	// Facing 90: the arc midpoint lies due +lng.
	mid := rotated.Vertices[5]
	if mid.Lng <= 0 {
		t.Errorf("expected arc toward +lng, got %+v", mid)
	}
}

func TestRemoveDropsTriangleAndControls(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	_, _ = f.ctrl.Begin()
	cam, _ := f.ctrl.Click(0, 0)
	if visible, err := f.ctrl.ToggleControls(cam.ID); err != nil || !visible {
		t.Fatalf("ToggleControls() = %v, %v", visible, err)
	}

	if err := f.ctrl.Remove(cam.ID); err != nil {
		t.Fatal(err)
	}
	if _, ok := f.ctrl.Triangle(cam.ID); ok {
		t.Error("triangle should be removed with its camera")
	}
	if f.ctrl.ControlsVisible(cam.ID) {
		t.Error("control visibility should be forgotten")
	}
	if _, err := f.ctrl.ToggleControls(cam.ID); !errors.Is(err, camera.ErrCameraNotFound) {
		t.Errorf("expected ErrCameraNotFound, got %v", err)
	}
}

func TestPersistFailureDoesNotFailCommit(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.persister.err = errors.New("disk full")

	_, _ = f.ctrl.Begin()
	_, _ = f.ctrl.Click(1, 1)
	if _, err := f.ctrl.Commit(context.Background()); err != nil {
		t.Errorf("Commit() error = %v, want nil", err)
	}
	if f.ctrl.Status().State != StateInactive {
		t.Error("commit should complete")
	}
}

func TestNewControllerDerivesExistingTriangles(t *testing.T) {
	t.Parallel()

	reg := camera.NewRegistry(nil)
	reg.Restore([]camera.Camera{{ID: "cam_a", Lat: 1, Lng: 1, FOVRadius: 20}, {ID: "cam_b", Lat: 2, Lng: 2, FOVRadius: 20}})
	ctrl := NewController(Config{
		Registry: reg,
		Coverage: coverage.NewCalculator(),
		Viewport: viewport.NewSynchronizer(viewport.State{}),
	})

	tris := ctrl.Triangles()
	if len(tris) != 2 || tris[0].CameraID != "cam_a" || tris[1].CameraID != "cam_b" {
		t.Errorf("unexpected triangles %+v", tris)
	}
}
