package decode_test

import "testing"

func rangeInts(n int) ([]any, []int64) {
	vals := make([]any, n)
	want := make([]int64, n)
	for i := range vals {
		vals[i] = int32(i)
		want[i] = int64(i)
	}
	return vals, want
}

func TestDequeElements(t *testing.T) {
	img := newImage()
	intT := img.Type("int")

	t.Run("single block", func(t *testing.T) {
		wantInts(t, img.Deque(intT, ints(1, 2, 3)...), []int64{1, 2, 3})
	})
	t.Run("empty", func(t *testing.T) {
		wantInts(t, img.Deque(intT), nil)
	})
}

func TestDequeSpansBlocks(t *testing.T) {
	// 300 ints cross two 128-element block boundaries
	img := newImage()
	vals, want := rangeInts(300)
	wantInts(t, img.Deque(img.Type("int"), vals...), want)
}

func TestDequeExactBlockFill(t *testing.T) {
	// the finish cursor sits at the start of a fresh block
	img := newImage()
	vals, want := rangeInts(128)
	wantInts(t, img.Deque(img.Type("int"), vals...), want)
}

func TestDequeAdapters(t *testing.T) {
	img := newImage()
	intT := img.Type("int")

	wantInts(t, img.Queue(intT, ints(1, 2)...), []int64{1, 2})
	wantInts(t, img.Stack(intT, ints(3, 4)...), []int64{3, 4})
}
