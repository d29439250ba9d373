package pose

import (
	"math"
	"testing"
	"time"

	"github.com/claude/curlform/internal/curl"
)

func near(a, b float64) bool { return math.Abs(a-b) < 1e-6 }

// standing returns a frame with both arms hanging straight down, every
// landmark fully visible and at the same depth.
func standing() Frame {
	f := make(Frame, NumLandmarks)
	for i := range f {
		f[i] = Landmark{Visibility: 1}
	}
	set := func(i int, x, y float64) { f[i].X, f[i].Y = x, y }
	set(LeftShoulder, 0.6, 0.3)
	set(LeftElbow, 0.6, 0.5)
	set(LeftWrist, 0.6, 0.7)
	set(LeftHip, 0.6, 0.7)
	set(RightShoulder, 0.4, 0.3)
	set(RightElbow, 0.4, 0.5)
	set(RightWrist, 0.4, 0.7)
	set(RightHip, 0.4, 0.7)
	return f
}

// TestAngle verifies the joint angle math including degenerate vectors.
func TestAngle(t *testing.T) {
	tests := []struct {
		name    string
		a, b, c Point
		want    float64
		wantOK  bool
	}{
		{"straight", Point{0, 0}, Point{0, 1}, Point{0, 2}, 180, true},
		{"right angle", Point{0, 0}, Point{0, 1}, Point{1, 1}, 90, true},
		{"folded", Point{0, 0}, Point{0, 1}, Point{0, 0}, 0, true},
		{"degenerate", Point{0, 1}, Point{0, 1}, Point{1, 1}, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Angle(tt.a, tt.b, tt.c)
			if ok != tt.wantOK {
				t.Fatalf("ok = %v, want %v", ok, tt.wantOK)
			}
			if ok && !near(got, tt.want) {
				t.Errorf("angle = %v, want %v", got, tt.want)
			}
		})
	}
}

// TestArmAngles verifies the shoulder-elbow-wrist and elbow-shoulder-hip
// angles for an extended and a flexed arm.
func TestArmAngles(t *testing.T) {
	f := standing()
	if a := ArmAngle(f, curl.SideLeft, 100, 100); a == nil || !near(*a, 180) {
		t.Errorf("extended arm angle = %v, want 180", a)
	}
	if a := TorsoAngle(f, curl.SideLeft, 100, 100); a == nil || !near(*a, 0) {
		t.Errorf("torso angle = %v, want 0", a)
	}

	f[RightWrist] = Landmark{X: 0.6, Y: 0.5, Visibility: 1}
	if a := ArmAngle(f, curl.SideRight, 100, 100); a == nil || !near(*a, 90) {
		t.Errorf("flexed arm angle = %v, want 90", a)
	}
}

// TestMissingLandmarks verifies short landmark lists yield unavailable
// angles and an assumed-aligned arm.
func TestMissingLandmarks(t *testing.T) {
	f := standing()[:LeftWrist]
	if a := ArmAngle(f, curl.SideLeft, 100, 100); a != nil {
		t.Errorf("arm angle = %v, want nil", *a)
	}
	if a := TorsoAngle(f, curl.SideLeft, 100, 100); a != nil {
		t.Errorf("torso angle = %v, want nil", *a)
	}
	if !Aligned(f, curl.SideLeft, 100, 100) {
		t.Error("aligned = false, want true when unmeasurable")
	}
}

// TestAligned verifies the elbow offset rule relative to torso height.
func TestAligned(t *testing.T) {
	f := standing()
	if !Aligned(f, curl.SideLeft, 100, 100) {
		t.Error("elbow under shoulder reported misaligned")
	}
	// Torso height is 40px; 15% allows up to 6px.
	f[LeftElbow].X = 0.68
	if Aligned(f, curl.SideLeft, 100, 100) {
		t.Error("elbow 8px out reported aligned")
	}
	f[LeftElbow].X = 0.62
	if !Aligned(f, curl.SideLeft, 100, 100) {
		t.Error("elbow 2px out reported misaligned")
	}
}

// TestArmVisibilityDepthFilter verifies the far arm is occluded only when
// the depth filter is enabled.
func TestArmVisibilityDepthFilter(t *testing.T) {
	f := standing()
	for _, i := range []int{RightShoulder, RightElbow, RightWrist} {
		f[i].Z = 0.3
	}

	cfg := curl.DefaultConfig()
	vis := ArmVisibility(f, cfg)
	if !vis[curl.SideLeft].Visible {
		t.Error("near arm not visible")
	}
	if !vis[curl.SideRight].Occluded || vis[curl.SideRight].Visible {
		t.Errorf("far arm = %+v, want occluded", vis[curl.SideRight])
	}

	cfg.DepthFilterEnabled = false
	vis = ArmVisibility(f, cfg)
	if !vis[curl.SideRight].Visible {
		t.Error("far arm hidden with depth filter off")
	}
}

// TestArmVisibilityConfidence verifies low landmark visibility hides an arm.
func TestArmVisibilityConfidence(t *testing.T) {
	f := standing()
	f[LeftWrist].Visibility = 0.1
	f[LeftElbow].Visibility = 0.2

	vis := ArmVisibility(f, curl.DefaultConfig())
	if vis[curl.SideLeft].Visible {
		t.Errorf("left = %+v, want not visible", vis[curl.SideLeft])
	}
	if !near(vis[curl.SideLeft].Confidence, 1.3/3) {
		t.Errorf("confidence = %v, want %v", vis[curl.SideLeft].Confidence, 1.3/3)
	}
}

// TestSampleEmptyFrame verifies a frame without a detected person yields
// unavailable, invisible arms.
func TestSampleEmptyFrame(t *testing.T) {
	s := Sample(nil, time.Second, 640, 480, curl.DefaultConfig())
	if s.At != time.Second {
		t.Errorf("At = %v, want 1s", s.At)
	}
	for _, side := range curl.Sides {
		a := s.Arm(side)
		if a.Angle != nil || a.TorsoAngle != nil || a.Visible {
			t.Errorf("%s = %+v, want unavailable", side, a)
		}
	}
}

// TestSampleStanding verifies a full frame produces usable samples.
func TestSampleStanding(t *testing.T) {
	s := Sample(standing(), 0, 640, 480, curl.DefaultConfig())
	for _, side := range curl.Sides {
		a := s.Arm(side)
		if a.Angle == nil || !near(*a.Angle, 180) {
			t.Errorf("%s angle = %v, want 180", side, a.Angle)
		}
		if !a.Visible || a.Confidence != 1 || !a.Aligned {
			t.Errorf("%s = %+v, want visible aligned", side, a)
		}
	}
}
