//go:build gocv

package images

import (
	"github.com/nvr-ai/brewguard/common"
	"github.com/pkg/errors"
	"gocv.io/x/gocv"
)

func init() {
	decoder = decodeMat
}

// decodeMat decodes through OpenCV. EXIF orientation is applied by IMDecode
// when requested.
func decodeMat(data []byte, o decodeOptions) (*RawImage, error) {
	flags := gocv.IMReadColor
	if !o.autoOrientation {
		flags |= gocv.IMReadIgnoreOrientation
	}

	mat, err := gocv.IMDecode(data, flags)
	if err != nil {
		return nil, common.NewError(common.KindDecode, errors.Wrap(err, "failed to decode image"))
	}
	defer mat.Close()
	if mat.Empty() {
		return nil, common.Errorf(common.KindDecode, "failed to decode image: empty matrix")
	}

	rgba := gocv.NewMat()
	defer rgba.Close()
	if err := gocv.CvtColor(mat, &rgba, gocv.ColorBGRToRGBA); err != nil {
		return nil, common.NewError(common.KindDecode, errors.Wrap(err, "failed to convert BGR to RGBA"))
	}

	return &RawImage{
		Format: FormatRaw,
		Width:  rgba.Cols(),
		Height: rgba.Rows(),
		Data:   rgba.ToBytes(),
	}, nil
}
