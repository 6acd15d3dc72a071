package mathx

import (
	"testing"

	"github.com/EngoEngine/glm"
)

func mat4Near(a, b *glm.Mat4, eps float32) bool {
	for i := range a {
		d := a[i] - b[i]
		if d < -eps || d > eps {
			return false
		}
	}
	return true
}

func TestInverseMat4RoundTrips(t *testing.T) {
	rot := glm.HomogRotate3D(0.7, &glm.Vec3{0, 1, 0})
	scale := glm.Scale3D(2, 3, 0.5)
	rs := rot.Mul4(&scale)
	translate := glm.Translate3D(4, -2, 9)
	m := translate.Mul4(&rs)

	inv := InverseMat4(&m)
	product := m.Mul4(&inv)
	ident := glm.Ident4()
	if !mat4Near(&product, &ident, 1e-4) {
		t.Errorf("m * m^-1 = %v, want identity", product)
	}
}

func TestInverseMat4Projection(t *testing.T) {
	p := glm.Perspective(1.2, 16.0/9.0, 0.1, 1000)
	inv := InverseMat4(&p)
	product := p.Mul4(&inv)
	ident := glm.Ident4()
	if !mat4Near(&product, &ident, 1e-3) {
		t.Errorf("projection inverse round trip failed: %v", product)
	}
}

func TestInverseMat4Singular(t *testing.T) {
	var zero glm.Mat4
	inv := InverseMat4(&zero)
	ident := glm.Ident4()
	if !mat4Near(&inv, &ident, 0) {
		t.Errorf("singular inverse = %v, want identity fallback", inv)
	}
}
