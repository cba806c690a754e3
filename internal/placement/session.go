// Vigilmap - Camera Coverage and Live Detection Monitoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vigilmap
// Package placement runs the interactive camera placement session: click
// to add, drag to move, per-camera FOV edits, and commit or cancel.
//
// State machine:
//
//	Inactive --Begin--> Active --Commit--> Committed --> Inactive
//	                      |  \--Cancel/Escape--> Cancelled --> Inactive
//	                      \--Commit with 0 cameras--> Active (rejected)
//
// Committed and Cancelled are reported as the outcome of the last session;
// the controller itself rests in Inactive.
package placement

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/tomtom215/vigilmap/internal/camera"
	"github.com/tomtom215/vigilmap/internal/coverage"
	"github.com/tomtom215/vigilmap/internal/fov"
	"github.com/tomtom215/vigilmap/internal/logging"
	"github.com/tomtom215/vigilmap/internal/metrics"
	"github.com/tomtom215/vigilmap/internal/viewport"
)

// State is the controller's position in the session lifecycle.
type State string

const (
	StateInactive  State = "inactive"
	StateActive    State = "active"
	StateCommitted State = "committed"
	StateCancelled State = "cancelled"
)

// EmptyCommitWarning is shown to the operator when committing with no cameras.
const EmptyCommitWarning = "Please place at least one camera before saving the layout."

// KeyEscape cancels an active session.
const KeyEscape = "Escape"

var (
	// ErrEmptyCommit rejects a commit with zero cameras. The session stays active.
	ErrEmptyCommit = errors.New(EmptyCommitWarning)

	// ErrSessionInactive is returned for edits outside an active session.
	ErrSessionInactive = errors.New("placement session is not active")

	// ErrSessionActive is returned by Begin when a session is already running.
	ErrSessionActive = errors.New("placement session already active")
)

// Persister saves committed state. Implemented by the store package.
type Persister interface {
	SaveCameras(ctx context.Context, cams []camera.Camera) error
	SaveCoverage(ctx context.Context, circle coverage.Circle) error
}

// Broadcaster pushes state changes to connected UI clients.
type Broadcaster interface {
	BroadcastJSON(messageType string, data interface{})
}

// Message types pushed by the controller.
const (
	MessageCamerasUpdated  = "cameras_updated"
	MessageCoverageUpdated = "coverage_updated"
	MessageViewportUpdated = "viewport_updated"
	MessageSessionState    = "placement_state"
)

// CommitResult is returned by a successful Commit.
type CommitResult struct {
	Coverage coverage.Circle `json:"coverage"`
	Viewport viewport.State  `json:"viewport"`
	Cameras  int             `json:"cameras"`
}

// Status is a read-only view of the controller.
type Status struct {
	State       State     `json:"state"`
	LastOutcome State     `json:"last_outcome,omitempty"`
	SessionID   string    `json:"session_id,omitempty"`
	StartedAt   time.Time `json:"started_at,omitempty"`
	Cameras     int       `json:"cameras"`
}

// Controller owns the session state machine and the FOV triangle of every
// camera. All methods are safe for concurrent use.
type Controller struct {
	mu sync.Mutex

	registry    *camera.Registry
	calculator  *coverage.Calculator
	viewport    *viewport.Synchronizer
	persister   Persister
	broadcaster Broadcaster

	state       State
	lastOutcome State
	sessionID   string
	startedAt   time.Time
	snapshot    []camera.Camera

	triangles map[string]*fov.Triangle
	controls  *ControlVisibility
}

// Config wires the controller's collaborators. Persister and Broadcaster
// are optional.
type Config struct {
	Registry    *camera.Registry
	Coverage    *coverage.Calculator
	Viewport    *viewport.Synchronizer
	Persister   Persister
	Broadcaster Broadcaster
}

// NewController creates an inactive controller and derives a triangle for
// every camera already in the registry.
func NewController(cfg Config) *Controller {
	c := &Controller{
		registry:    cfg.Registry,
		calculator:  cfg.Coverage,
		viewport:    cfg.Viewport,
		persister:   cfg.Persister,
		broadcaster: cfg.Broadcaster,
		state:       StateInactive,
		triangles:   make(map[string]*fov.Triangle),
		controls:    NewControlVisibility(),
	}
	c.rebuildTrianglesLocked()
	return c
}

// Begin enters the Active state and snapshots the registry for rollback.
func (c *Controller) Begin() (Status, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == StateActive {
		return c.statusLocked(), ErrSessionActive
	}

	c.state = StateActive
	c.sessionID = logging.GenerateCorrelationID()
	c.startedAt = time.Now().UTC()
	c.snapshot = c.registry.Snapshot()

	logging.Info().
		Str("session_id", c.sessionID).
		Int("cameras", len(c.snapshot)).
		Msg("Placement session started")

	st := c.statusLocked()
	c.broadcast(MessageSessionState, st)
	return st, nil
}

// Click adds a camera at the clicked position with default pose.
func (c *Controller) Click(lat, lng float64) (camera.Camera, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StateActive {
		return camera.Camera{}, ErrSessionInactive
	}

	cam := c.registry.Add(lat, lng)
	c.recomputeLocked(&cam)

	logging.Debug().
		Str("session_id", c.sessionID).
		Str("camera_id", cam.ID).
		Float64("lat", lat).
		Float64("lng", lng).
		Msg("Camera placed")

	c.camerasChangedLocked()
	return cam, nil
}

// Remove deletes a camera and its triangle.
func (c *Controller) Remove(id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StateActive {
		return ErrSessionInactive
	}
	if err := c.registry.Remove(id); err != nil {
		return err
	}
	delete(c.triangles, id)
	c.controls.Forget(id)
	c.camerasChangedLocked()
	return nil
}

// DragStart marks the camera's triangle as being dragged.
func (c *Controller) DragStart(id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StateActive {
		return ErrSessionInactive
	}
	tri, ok := c.triangles[id]
	if !ok {
		return fmt.Errorf("%w: %s", camera.ErrCameraNotFound, id)
	}
	tri.Dragging = true
	return nil
}

// DragEnd moves the camera to the drop position, recomputes its triangle
// and clears the dragging flag before the change is broadcast.
func (c *Controller) DragEnd(id string, lat, lng float64) (camera.Camera, error) {
	return c.editTriangle(
		func() (camera.Camera, error) { return c.registry.Move(id, lat, lng) },
		func(tri *fov.Triangle) { tri.Dragging = false },
	)
}

// SetDirection updates the camera bearing and recomputes its triangle.
func (c *Controller) SetDirection(id string, direction float64) (camera.Camera, error) {
	return c.edit(func() (camera.Camera, error) { return c.registry.SetDirection(id, direction) })
}

// SetRadius stores the raw radius; geometry uses the clamped value.
func (c *Controller) SetRadius(id string, radius float64) (camera.Camera, error) {
	return c.edit(func() (camera.Camera, error) { return c.registry.SetRadius(id, radius) })
}

// UpdatePose applies a new direction and/or radius in one step: both
// values land in the registry and a single cameras_updated is broadcast.
// Nil fields are left unchanged.
func (c *Controller) UpdatePose(id string, direction, radius *float64) (camera.Camera, error) {
	return c.edit(func() (camera.Camera, error) {
		cam, err := c.registry.Get(id)
		if err != nil {
			return camera.Camera{}, err
		}
		if direction != nil {
			if cam, err = c.registry.SetDirection(id, *direction); err != nil {
				return camera.Camera{}, err
			}
		}
		if radius != nil {
			if cam, err = c.registry.SetRadius(id, *radius); err != nil {
				return camera.Camera{}, err
			}
		}
		return cam, nil
	})
}

func (c *Controller) edit(fn func() (camera.Camera, error)) (camera.Camera, error) {
	return c.editTriangle(fn, nil)
}

// editTriangle runs fn, rebuilds the camera's triangle, lets adjust touch
// the new triangle and then broadcasts, all under one lock.
func (c *Controller) editTriangle(fn func() (camera.Camera, error), adjust func(*fov.Triangle)) (camera.Camera, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StateActive {
		return camera.Camera{}, ErrSessionInactive
	}
	cam, err := fn()
	if err != nil {
		return camera.Camera{}, err
	}
	c.recomputeLocked(&cam)
	if adjust != nil {
		adjust(c.triangles[cam.ID])
	}
	c.camerasChangedLocked()
	return cam, nil
}

// HandleKey reacts to keyboard input. Escape cancels an active session;
// other keys are ignored. handled reports whether the key did anything.
func (c *Controller) HandleKey(ctx context.Context, key string) (handled bool, err error) {
	if key != KeyEscape {
		return false, nil
	}
	if err := c.Cancel(ctx); err != nil {
		if errors.Is(err, ErrSessionInactive) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// Commit finalizes the session: computes coverage, fits both viewports and
// persists the result. With zero cameras it returns ErrEmptyCommit and the
// session stays Active. Persistence failures are logged, not returned.
func (c *Controller) Commit(ctx context.Context) (CommitResult, error) {
	c.mu.Lock()

	if c.state != StateActive {
		c.mu.Unlock()
		return CommitResult{}, ErrSessionInactive
	}

	cams := c.registry.List()
	circle, err := c.calculator.Compute(cams)
	if err != nil {
		c.mu.Unlock()
		if errors.Is(err, coverage.ErrNoCameras) {
			metrics.RecordPlacementOutcome("rejected_empty")
			logging.Warn().Str("session_id", c.sessionID).Msg("Commit rejected: no cameras placed")
			return CommitResult{}, ErrEmptyCommit
		}
		return CommitResult{}, fmt.Errorf("compute coverage: %w", err)
	}

	vp, _ := c.viewport.FitToCameras(cams)

	sessionID := c.sessionID
	c.finishLocked(StateCommitted)
	status := c.statusLocked()
	c.mu.Unlock()

	metrics.RecordPlacementOutcome("committed")
	metrics.CamerasPlaced.Set(float64(len(cams)))
	metrics.CoverageRadiusMeters.Set(circle.RadiusMeters)

	logging.Info().
		Str("session_id", sessionID).
		Int("cameras", len(cams)).
		Float64("coverage_radius_m", circle.RadiusMeters).
		Int("zoom", vp.Zoom).
		Msg("Placement session committed")

	c.persist(ctx, cams, circle)

	c.broadcast(MessageCoverageUpdated, circle)
	c.broadcast(MessageSessionState, status)

	return CommitResult{Coverage: circle, Viewport: vp, Cameras: len(cams)}, nil
}

// Cancel rolls the registry back to the snapshot taken by Begin.
func (c *Controller) Cancel(_ context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StateActive {
		return ErrSessionInactive
	}

	c.registry.Restore(c.snapshot)
	c.rebuildTrianglesLocked()
	c.controls.Retain(c.registry.List())

	logging.Info().
		Str("session_id", c.sessionID).
		Int("cameras", len(c.snapshot)).
		Msg("Placement session cancelled, registry restored")

	metrics.RecordPlacementOutcome("cancelled")
	c.finishLocked(StateCancelled)
	c.camerasChangedLocked()
	c.broadcast(MessageSessionState, c.statusLocked())
	return nil
}

func (c *Controller) finishLocked(outcome State) {
	c.state = StateInactive
	c.lastOutcome = outcome
	c.snapshot = nil
	c.sessionID = ""
	c.startedAt = time.Time{}
	for _, tri := range c.triangles {
		tri.Dragging = false
	}
}

func (c *Controller) persist(ctx context.Context, cams []camera.Camera, circle coverage.Circle) {
	if c.persister == nil {
		return
	}
	if err := c.persister.SaveCameras(ctx, cams); err != nil {
		logging.Err(err).Msg("Failed to persist cameras")
	}
	if err := c.persister.SaveCoverage(ctx, circle); err != nil {
		logging.Err(err).Msg("Failed to persist coverage")
	}
}

// Status returns the current state.
func (c *Controller) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.statusLocked()
}

func (c *Controller) statusLocked() Status {
	return Status{
		State:       c.state,
		LastOutcome: c.lastOutcome,
		SessionID:   c.sessionID,
		StartedAt:   c.startedAt,
		Cameras:     c.registry.Len(),
	}
}

// Triangles returns the FOV triangles in registry order.
func (c *Controller) Triangles() []fov.Triangle {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.trianglesLocked()
}

// Triangle returns the FOV triangle for one camera.
func (c *Controller) Triangle(id string) (fov.Triangle, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	tri, ok := c.triangles[id]
	if !ok {
		return fov.Triangle{}, false
	}
	return copyTriangle(tri), true
}

// Reload rebuilds every triangle after the registry was replaced from
// persistence. It does not touch an active session.
func (c *Controller) Reload() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.rebuildTrianglesLocked()
	metrics.CamerasPlaced.Set(float64(c.registry.Len()))
}

// ToggleControls flips the editor visibility of an existing camera. It is
// allowed in any session state.
func (c *Controller) ToggleControls(id string) (bool, error) {
	if _, err := c.registry.Get(id); err != nil {
		return false, err
	}
	return c.controls.Toggle(id), nil
}

// ControlsVisible reports whether the editor for id is open.
func (c *Controller) ControlsVisible(id string) bool {
	return c.controls.Visible(id)
}

func (c *Controller) trianglesLocked() []fov.Triangle {
	cams := c.registry.List()
	out := make([]fov.Triangle, 0, len(cams))
	for i := range cams {
		if tri, ok := c.triangles[cams[i].ID]; ok {
			out = append(out, copyTriangle(tri))
		}
	}
	return out
}

func (c *Controller) recomputeLocked(cam *camera.Camera) {
	dragging := false
	if prev, ok := c.triangles[cam.ID]; ok {
		dragging = prev.Dragging
	}
	tri := fov.NewTriangle(cam)
	tri.Dragging = dragging
	c.triangles[cam.ID] = &tri
}

func (c *Controller) rebuildTrianglesLocked() {
	cams := c.registry.List()
	next := make(map[string]*fov.Triangle, len(cams))
	for i := range cams {
		tri := fov.NewTriangle(&cams[i])
		next[cams[i].ID] = &tri
	}
	c.triangles = next
}

func (c *Controller) camerasChangedLocked() {
	metrics.CamerasPlaced.Set(float64(c.registry.Len()))
	if c.broadcaster == nil {
		return
	}
	c.broadcaster.BroadcastJSON(MessageCamerasUpdated, map[string]interface{}{
		"cameras":   c.registry.List(),
		"triangles": c.trianglesLocked(),
	})
}

func (c *Controller) broadcast(messageType string, data interface{}) {
	if c.broadcaster != nil {
		c.broadcaster.BroadcastJSON(messageType, data)
	}
}

func copyTriangle(tri *fov.Triangle) fov.Triangle {
	out := *tri
	out.Vertices = append(tri.Vertices[:0:0], tri.Vertices...)
	return out
}
