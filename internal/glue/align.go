package glue

import (
	"go.uber.org/zap"
	"gonum.org/v1/gonum/mat"

	"github.com/Faultbox/modgrow/internal/mesh"
	"github.com/Faultbox/modgrow/pkg/math"
)

// rankTol is the relative size below which a singular value counts as zero.
const rankTol = 1e-9

// RigidAlignment returns the rotation and translation that best carries src
// onto dst in the least squares sense (Kabsch). With fewer than two
// independent directions the rotation is undetermined and only the
// centroids are aligned.
func RigidAlignment(src, dst []math.Vec3) (math.Mat4, error) {
	const op = "rigid alignment"
	if len(src) != len(dst) || len(src) == 0 {
		return math.Identity(), Preconditionf(op, "%d source and %d target points", len(src), len(dst))
	}

	cs, cd := math.Centroid(src), math.Centroid(dst)
	h := mat.NewDense(3, 3, nil)
	for i := range src {
		a := src[i].Sub(cs)
		b := dst[i].Sub(cd)
		av := [3]float64{a.X, a.Y, a.Z}
		bv := [3]float64{b.X, b.Y, b.Z}
		for r := 0; r < 3; r++ {
			for c := 0; c < 3; c++ {
				h.Set(r, c, h.At(r, c)+av[r]*bv[c])
			}
		}
	}

	var svd mat.SVD
	if !svd.Factorize(h, mat.SVDFull) {
		return math.Identity(), &Error{Kind: KindNumeric, Op: op, Err: ErrDegenerate}
	}
	vals := svd.Values(nil)
	rank := 0
	for _, v := range vals {
		if v > rankTol*vals[0] && v > 0 {
			rank++
		}
	}
	if rank < 2 {
		return math.TranslateVec(cd.Sub(cs)), nil
	}

	var u, v, r mat.Dense
	svd.UTo(&u)
	svd.VTo(&v)
	r.Mul(&v, u.T())
	if mat.Det(&r) < 0 {
		for i := 0; i < 3; i++ {
			v.Set(i, 2, -v.At(i, 2))
		}
		r.Mul(&v, u.T())
	}

	var rows [3][3]float64
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			rows[i][j] = r.At(i, j)
		}
	}
	rot := math.FromRows(rows, math.Vec3{})
	t := math.FromRows(rows, cd.Sub(rot.TransformPoint(cs)))
	if !t.IsFinite() {
		return math.Identity(), &Error{Kind: KindNumeric, Op: op, Err: ErrDegenerate}
	}
	return t, nil
}

// NormalRefinement returns the rotation that turns the summed module pole
// normals against the summed host normals, pivoting at the centroid of the
// matched module poles. Degenerate sums yield the identity.
func NormalRefinement(m *mesh.Mesh, matches []Match) (math.Mat4, bool) {
	if len(matches) == 0 {
		return math.Identity(), false
	}
	var moduleVec, hostVec math.Vec3
	pts := make([]math.Vec3, len(matches))
	for i, mt := range matches {
		pts[i] = m.Pos(mt.Module)
		moduleVec = moduleVec.Add(m.UnitNormal(mt.Module))
		hostVec = hostVec.Sub(m.UnitNormal(mt.Host))
	}
	if moduleVec.IsZero() || hostVec.IsZero() {
		return math.Identity(), false
	}
	return math.AlignVectors(moduleVec, hostVec, math.Centroid(pts)), true
}

// Align moves the module vertices onto the host: first by the
// configuration transform, then by the least squares fit of the matched
// poles, then by the normal refinement.
func Align(m *mesh.Mesh, module []mesh.VertexID, cfg Configuration, log *zap.Logger) error {
	if log == nil {
		log = zap.NewNop()
	}
	if len(cfg.Matches) == 0 {
		return Preconditionf("align", "configuration has no matches")
	}
	m.Transform(module, cfg.Transform)

	src := make([]math.Vec3, len(cfg.Matches))
	dst := make([]math.Vec3, len(cfg.Matches))
	for i, mt := range cfg.Matches {
		src[i], dst[i] = m.Pos(mt.Module), m.Pos(mt.Host)
	}
	fit, err := RigidAlignment(src, dst)
	if err != nil {
		return err
	}
	m.Transform(module, fit)

	if r, ok := NormalRefinement(m, cfg.Matches); ok {
		m.Transform(module, r)
	} else {
		log.Warn("normal refinement skipped: degenerate normal sum")
	}
	return nil
}
