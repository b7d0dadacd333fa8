package decode_test

import "testing"

func TestListElements(t *testing.T) {
	img := newImage()
	intT := img.Type("int")

	t.Run("current layout", func(t *testing.T) {
		wantInts(t, img.List(intT, ints(1, 2, 3)...), []int64{1, 2, 3})
	})
	t.Run("empty", func(t *testing.T) {
		wantInts(t, img.List(intT), nil)
	})
}

func TestListLegacyLayout(t *testing.T) {
	img := newImage()
	wantInts(t, img.ListLegacy(img.Type("int"), ints(9, 8, 7)...), []int64{9, 8, 7})
}
