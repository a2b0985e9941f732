package image

import (
	"errors"
	"testing"

	"car-analyzer-go/src/configs"
)

func TestValidate_Extensions(t *testing.T) {
	p := newTestProcessor(t, nil)

	tests := []struct {
		filename string
		wantErr  error
	}{
		{"car.png", nil},
		{"car.jpg", nil},
		{"car.jpeg", nil},
		{"CAR.JPG", nil},
		{"Car.JpEg", nil},
		{"archive.tar.png", nil},
		{"photo.bmp", ErrUnsupportedFormat},
		{"photo.gif", ErrUnsupportedFormat},
		{"photo.webp", ErrUnsupportedFormat},
		{"photo", ErrUnsupportedFormat},
		{"png", ErrUnsupportedFormat},
		{"", ErrUnsupportedFormat},
		{"photo.png.exe", ErrUnsupportedFormat},
	}

	for _, tt := range tests {
		t.Run(tt.filename, func(t *testing.T) {
			err := p.Validate(tt.filename, 1024)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Validate(%q) = %v, want %v", tt.filename, err, tt.wantErr)
			}
		})
	}
}

func TestValidate_Size(t *testing.T) {
	p := newTestProcessor(t, func(s *configs.SecurityConfig) {
		s.MaxFileSize = 100
	})

	if err := p.Validate("car.png", 100); err != nil {
		t.Errorf("Validate() at limit = %v, want nil", err)
	}
	if err := p.Validate("car.png", 101); !errors.Is(err, ErrFileTooLarge) {
		t.Errorf("Validate() over limit = %v, want ErrFileTooLarge", err)
	}
	if got := p.GetMetrics().FailedValidations; got != 1 {
		t.Errorf("FailedValidations = %d, want 1", got)
	}
}

func TestMatchesSignature(t *testing.T) {
	p := newTestProcessor(t, nil)
	png := encodePNG(t, 2, 2)
	jpg := encodeJPEG(t, 2, 2)

	tests := []struct {
		name string
		data []byte
		ext  string
		want bool
	}{
		{"png", png, "png", true},
		{"jpg", jpg, "jpg", true},
		{"jpeg大写", jpg, "JPEG", true},
		{"png当作jpg", png, "jpg", false},
		{"过短", []byte{0x89}, "png", false},
		{"未知格式", png, "bmp", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := p.validator.MatchesSignature(tt.data, tt.ext); got != tt.want {
				t.Errorf("MatchesSignature() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestExtension(t *testing.T) {
	tests := map[string]string{
		"car.JPG":      "jpg",
		"dir/car.jpeg": "jpeg",
		"noext":        "",
	}
	for in, want := range tests {
		if got := Extension(in); got != want {
			t.Errorf("Extension(%q) = %q, want %q", in, got, want)
		}
	}
}
