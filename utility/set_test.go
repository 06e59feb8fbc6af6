package utility_test

import (
	"testing"

	"chess/utility"
)

func Test_set(test *testing.T) {
	set := utility.NewSet[int]()
	set.Add(1)
	set.Add(2)
	set.Add(2)

	if set.Len() != 2 {
		test.Fatalf("expected 2 elements, got %d", set.Len())
	}
	if !set.Has(1) || !set.Has(2) || set.Has(3) {
		test.Fatal("membership is wrong")
	}

	set.Remove(1)
	if set.Has(1) || set.Len() != 1 {
		test.Fatal("remove did not take")
	}

	seen := 0
	for element := range set.Iter() {
		if element != 2 {
			test.Fatalf("unexpected element %d", element)
		}
		seen += 1
	}
	if seen != 1 {
		test.Fatalf("iterated %d elements, expected 1", seen)
	}
}

func Test_set_diff(test *testing.T) {
	set := utility.NewSet[string]()
	set.Add("a")
	set.Add("b")

	other := utility.NewSet[string]()
	other.Add("b")
	other.Add("c")

	diff := set.DiffArr(&other)
	if len(diff) != 1 || diff[0] != "a" {
		test.Fatalf("unexpected diff %v", diff)
	}
}
