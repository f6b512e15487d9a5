package domain

// View is one of the five fixed oral photograph angles.
type View string

const (
	ViewFront         View = "front"
	ViewUpperOcclusal View = "upper_occlusal"
	ViewLowerOcclusal View = "lower_occlusal"
	ViewRightLateral  View = "right_lateral"
	ViewLeftLateral   View = "left_lateral"
)

// Views lists every view in report order.
var Views = []View{ViewFront, ViewUpperOcclusal, ViewLowerOcclusal, ViewRightLateral, ViewLeftLateral}

var viewLabels = map[View]string{
	ViewFront:         "正面観",
	ViewUpperOcclusal: "上顎咬合面観",
	ViewLowerOcclusal: "下顎咬合面観",
	ViewRightLateral:  "右側方観",
	ViewLeftLateral:   "左側方観",
}

func (v View) Label() string {
	if label, ok := viewLabels[v]; ok {
		return label
	}
	return string(v)
}

type Photo struct {
	Filename    string
	ContentType string
	Data        []byte
}

// PhotoSet maps views to uploaded photos; absent views are simply missing keys.
type PhotoSet map[View]Photo

// Present returns the supplied views in fixed order.
func (s PhotoSet) Present() []View {
	views := make([]View, 0, len(Views))
	for _, view := range Views {
		if photo, ok := s[view]; ok && photo.Filename != "" {
			views = append(views, view)
		}
	}
	return views
}

// StoredPhoto describes a persisted photo. Width and Height are zero when the image
// format could not be decoded.
type StoredPhoto struct {
	View     View   `json:"view"`
	Key      string `json:"key"`
	MIMEType string `json:"mime_type"`
	Width    int    `json:"width"`
	Height   int    `json:"height"`
}

func (p StoredPhoto) HasSize() bool { return p.Width > 0 && p.Height > 0 }

type PhotoAnalysisRequest struct {
	View     View
	Label    string
	MIMEType string
	Data     []byte
}

type PhotoFinding struct {
	View     View   `json:"view"`
	Label    string `json:"label"`
	Analysis string `json:"analysis"`
	Failed   bool   `json:"failed"`
	Reason   string `json:"reason,omitempty"`
}
