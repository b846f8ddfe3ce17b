package physics

import (
	"fmt"

	"github.com/jakecoffman/cp"
)

// Vec is the 2D vector type shared with the underlying engine.
type Vec = cp.Vector

// BodyID is an opaque handle into the World registry. Handles are never reused.
type BodyID uint32

// NoBody is the zero handle; it never refers to a registered body.
const NoBody BodyID = 0

// Material holds the surface properties applied to a shape.
type Material struct {
	Elasticity    float64
	Friction      float64
	CollisionType uint
}

type entry struct {
	body   *cp.Body
	shapes []*cp.Shape
}

// World owns a Chipmunk space and every body added to it. Callers only hold
// BodyIDs; the engine pointers stay inside the registry.
type World struct {
	space  *cp.Space
	bodies map[BodyID]*entry
	static []*cp.Shape
	nextID BodyID
}

// NewWorld creates an empty simulation with the given gravity.
func NewWorld(gravity Vec) *World {
	space := cp.NewSpace()
	space.SetGravity(gravity)
	return &World{
		space:  space,
		bodies: make(map[BodyID]*entry),
	}
}

func (w *World) register(body *cp.Body) BodyID {
	w.nextID++
	id := w.nextID
	w.space.AddBody(body)
	w.bodies[id] = &entry{body: body}
	return id
}

// mustGet panics when the handle is not registered. Operating on a removed
// body is a caller bug, not a runtime condition.
func (w *World) mustGet(id BodyID) *entry {
	e, ok := w.bodies[id]
	if !ok {
		panic(fmt.Sprintf("physics: body %d is not registered", id))
	}
	return e
}

// AddDynamicBody registers a force-driven body at pos.
func (w *World) AddDynamicBody(mass, moment float64, pos Vec) BodyID {
	body := cp.NewBody(mass, moment)
	body.SetPosition(pos)
	return w.register(body)
}

// AddKinematicBody registers a body moved only by position assignment.
func (w *World) AddKinematicBody(pos Vec) BodyID {
	body := cp.NewKinematicBody()
	body.SetPosition(pos)
	return w.register(body)
}

// AddCircle attaches a circle shape centred on the body.
func (w *World) AddCircle(id BodyID, radius float64, m Material) {
	e := w.mustGet(id)
	shape := cp.NewCircle(e.body, radius, cp.Vector{})
	applyMaterial(shape, m)
	w.space.AddShape(shape)
	e.shapes = append(e.shapes, shape)
}

// ReplacePolygon removes every shape on the body and attaches a fresh convex
// polygon built from verts (body-local coordinates).
func (w *World) ReplacePolygon(id BodyID, verts []Vec, m Material) {
	e := w.mustGet(id)
	for _, s := range e.shapes {
		w.space.RemoveShape(s)
	}
	e.shapes = e.shapes[:0]

	if len(verts) < 3 {
		return
	}
	shape := cp.NewPolyShape(e.body, len(verts), verts, cp.NewTransformIdentity(), 0)
	applyMaterial(shape, m)
	w.space.AddShape(shape)
	e.shapes = append(e.shapes, shape)
}

// AddStaticSegment attaches an immovable segment to the space's static body.
// Static segments live for the lifetime of the World.
func (w *World) AddStaticSegment(a, b Vec, radius float64, m Material) {
	shape := cp.NewSegment(w.space.StaticBody, a, b, radius)
	applyMaterial(shape, m)
	w.space.AddShape(shape)
	w.static = append(w.static, shape)
}

// Remove deregisters the body and all of its shapes.
func (w *World) Remove(id BodyID) {
	e := w.mustGet(id)
	for _, s := range e.shapes {
		w.space.RemoveShape(s)
	}
	w.space.RemoveBody(e.body)
	delete(w.bodies, id)
}

// Contains reports whether id is registered.
func (w *World) Contains(id BodyID) bool {
	_, ok := w.bodies[id]
	return ok
}

// Position returns the body's world position.
func (w *World) Position(id BodyID) Vec {
	return w.mustGet(id).body.Position()
}

// SetPosition teleports the body.
func (w *World) SetPosition(id BodyID, pos Vec) {
	w.mustGet(id).body.SetPosition(pos)
}

// Velocity returns the body's linear velocity.
func (w *World) Velocity(id BodyID) Vec {
	return w.mustGet(id).body.Velocity()
}

// SetVelocity overrides the body's linear velocity.
func (w *World) SetVelocity(id BodyID, v Vec) {
	w.mustGet(id).body.SetVelocityVector(v)
}

// Angle returns the body's rotation in radians.
func (w *World) Angle(id BodyID) float64 {
	return w.mustGet(id).body.Angle()
}

// ApplyImpulse applies impulse at a body-local point.
func (w *World) ApplyImpulse(id BodyID, impulse, local Vec) {
	w.mustGet(id).body.ApplyImpulseAtLocalPoint(impulse, local)
}

// ShapeCount returns the number of shapes attached to the body.
func (w *World) ShapeCount(id BodyID) int {
	return len(w.mustGet(id).shapes)
}

// PolygonVerts returns the vertices of the body's first polygon shape in
// body-local coordinates, or nil when it has none.
func (w *World) PolygonVerts(id BodyID) []Vec {
	for _, s := range w.mustGet(id).shapes {
		poly, ok := s.Class.(*cp.PolyShape)
		if !ok {
			continue
		}
		verts := make([]Vec, poly.Count())
		for i := range verts {
			verts[i] = poly.Vert(i)
		}
		return verts
	}
	return nil
}

// BodyCount returns the number of registered (non-static) bodies.
func (w *World) BodyCount() int {
	return len(w.bodies)
}

// StaticCount returns the number of static segments.
func (w *World) StaticCount() int {
	return len(w.static)
}

// Step advances the simulation by dt seconds.
func (w *World) Step(dt float64) {
	w.space.Step(dt)
}

// MomentForCircle returns the moment of inertia of a solid disc.
func MomentForCircle(mass, radius float64) float64 {
	return cp.MomentForCircle(mass, 0, radius, cp.Vector{})
}

func applyMaterial(s *cp.Shape, m Material) {
	s.SetElasticity(m.Elasticity)
	s.SetFriction(m.Friction)
	if m.CollisionType != 0 {
		s.SetCollisionType(cp.CollisionType(m.CollisionType))
	}
}
