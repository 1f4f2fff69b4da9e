package vector

// Transform places a part relative to its parent: scale, then rotate, then translate.
type Transform struct {
	Position Vec3 `json:"position" cbor:"p"`
	Rotation Quat `json:"rotation" cbor:"r"`
	Scale    Vec3 `json:"scale" cbor:"s"`
}

// NewTransform returns a unit-scale transform
func NewTransform(pos Vec3, rot Quat) Transform {
	return Transform{Position: pos, Rotation: rot, Scale: Vec3{1, 1, 1}}
}

// Apply maps a point from local space into the parent space.
func (t Transform) Apply(p Vec3) Vec3 {
	return t.Rotation.Rotate(p.Hadamard(t.Scale)).Add(t.Position)
}

// Compose returns the transform of child expressed in t's parent space.
//
// Scale is composed component-wise, which is exact for the axis-aligned
// scales used by the airframe.
func (t Transform) Compose(child Transform) Transform {
	return Transform{
		Position: t.Apply(child.Position),
		Rotation: t.Rotation.Mul(child.Rotation).Normalize(),
		Scale:    t.Scale.Hadamard(child.Scale),
	}
}
