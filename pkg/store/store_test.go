package store

import (
	"fmt"
	"reflect"
	"sync"
	"testing"

	"github.com/james-see/patternplay/pkg/pattern"
)

func TestStoreCRUD(t *testing.T) {
	s := New()

	if _, ok := s.Get("missing"); ok {
		t.Error("Get(missing) ok = true")
	}

	s.Put(pattern.New("b", 4, []pattern.Note{{Pitch: 60, Velocity: 80, Duration: 1}}))
	s.Put(pattern.New("a", 2, []pattern.Note{{Pitch: 62, Velocity: 80, Duration: 1}}))

	if want, got := []string{"a", "b"}, s.List(); !reflect.DeepEqual(want, got) {
		t.Errorf("List() = %v, want %v", got, want)
	}

	got, ok := s.Get("a")
	if !ok || got.Length != 2 || got.Notes[0].Pitch != 62 {
		t.Errorf("Get(a) = %+v, %v", got, ok)
	}

	if !s.Delete("a") {
		t.Error("Delete(a) = false, want true")
	}
	if s.Delete("a") {
		t.Error("second Delete(a) = true, want false")
	}

	s.Clear()
	if s.Len() != 0 {
		t.Errorf("Len() after Clear = %d", s.Len())
	}
}

func TestStoreCopies(t *testing.T) {
	s := New()
	p := pattern.New("p", 1, []pattern.Note{{Pitch: 60, Velocity: 80, Duration: 1}})
	s.Put(p)

	p.Notes[0].Pitch = 0
	got, _ := s.Get("p")
	if got.Notes[0].Pitch != 60 {
		t.Error("Put() stored a shared slice")
	}

	got.Notes[0].Pitch = 1
	again, _ := s.Get("p")
	if again.Notes[0].Pitch != 60 {
		t.Error("Get() returned a shared slice")
	}
}

func TestStoreConcurrent(t *testing.T) {
	s := New()
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			name := fmt.Sprintf("p%d", i)
			for j := 0; j < 100; j++ {
				s.Put(pattern.New(name, 1, []pattern.Note{{Pitch: uint8(j), Velocity: 1, Duration: 1}}))
				s.Get(name)
				s.List()
			}
		}(i)
	}
	wg.Wait()
	if s.Len() != 8 {
		t.Errorf("Len() = %d, want 8", s.Len())
	}
}
