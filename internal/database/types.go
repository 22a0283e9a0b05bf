package database

// StoredFace is a detected face with its embedding. Faces are immutable once stored.
type StoredFace struct {
	ID        int64
	ImageID   int64
	ImgWidth  int
	ImgHeight int
	BBox      BBox
	Embedding []float32
}

// BBox is a face bounding box in raw pixel coordinates.
type BBox struct {
	X int `json:"x"`
	Y int `json:"y"`
	W int `json:"w"`
	H int `json:"h"`
}

// FaceMeta is the face record without its embedding.
type FaceMeta struct {
	ID        int64 `json:"id"`
	ImageID   int64 `json:"image_id"`
	ImgWidth  int   `json:"img_width"`
	ImgHeight int   `json:"img_height"`
	BBox      BBox  `json:"bbox"`
}

// Meta strips the embedding.
func (f *StoredFace) Meta() FaceMeta {
	return FaceMeta{ID: f.ID, ImageID: f.ImageID, ImgWidth: f.ImgWidth, ImgHeight: f.ImgHeight, BBox: f.BBox}
}
