package ocr

import (
	"fmt"
	"image"
	"image/color"
	"os"

	"github.com/disintegration/imaging"
)

// minOCRHeight is the height small images are upscaled to; tesseract is
// unreliable on glyphs only a few pixels tall.
const minOCRHeight = 1200

// variant is a preprocessed copy of the source image written to a temp file.
type variant struct {
	name string
	path string
}

// prepare writes the preprocessed variants OCR is run against. The caller
// must call cleanup once done.
func prepare(path string) (vs []variant, cleanup func(), err error) {
	img, err := imaging.Open(path, imaging.AutoOrientation(true))
	if err != nil {
		return nil, nil, fmt.Errorf("open image: %w", err)
	}
	gray := imaging.Grayscale(img)
	if gray.Bounds().Dy() < minOCRHeight {
		gray = imaging.Resize(gray, 0, minOCRHeight, imaging.Lanczos)
	}
	gray = imaging.AdjustContrast(gray, 20)
	gray = imaging.Sharpen(gray, 0.8)

	var paths []string
	cleanup = func() {
		for _, p := range paths {
			_ = os.Remove(p)
		}
	}
	save := func(name string, img image.Image) error {
		f, err := os.CreateTemp("", "receipt-"+name+"-*.png")
		if err != nil {
			return err
		}
		_ = f.Close()
		paths = append(paths, f.Name())
		if err := imaging.Save(img, f.Name()); err != nil {
			return err
		}
		vs = append(vs, variant{name: name, path: f.Name()})
		return nil
	}
	if err := save("gray", gray); err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("save variant: %w", err)
	}
	if err := save("binary", threshold(gray, 21, 10)); err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("save variant: %w", err)
	}
	return vs, cleanup, nil
}

// threshold binarizes img against the mean of a window x window
// neighbourhood minus bias, which copes with uneven lighting on photographed
// receipts better than a global cut-off.
func threshold(img image.Image, window, bias int) *image.Gray {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	lum := make([]int, w*h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			lum[y*w+x] = int(color.GrayModel.Convert(img.At(b.Min.X+x, b.Min.Y+y)).(color.Gray).Y)
		}
	}
	// summed-area table with a zero border row and column
	sat := make([]int, (w+1)*(h+1))
	for y := 1; y <= h; y++ {
		row := 0
		for x := 1; x <= w; x++ {
			row += lum[(y-1)*w+(x-1)]
			sat[y*(w+1)+x] = sat[(y-1)*(w+1)+x] + row
		}
	}
	half := window / 2
	out := image.NewGray(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		y0, y1 := max(y-half, 0), min(y+half+1, h)
		for x := 0; x < w; x++ {
			x0, x1 := max(x-half, 0), min(x+half+1, w)
			sum := sat[y1*(w+1)+x1] - sat[y0*(w+1)+x1] - sat[y1*(w+1)+x0] + sat[y0*(w+1)+x0]
			mean := sum / ((x1 - x0) * (y1 - y0))
			v := uint8(255)
			if lum[y*w+x] < mean-bias {
				v = 0
			}
			out.Pix[y*out.Stride+x] = v
		}
	}
	return out
}
