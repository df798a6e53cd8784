package tiff

import "testing"

func TestDescribeKnownTag(t *testing.T) {
	d, ok := Describe(StripOffsets)
	if !ok {
		t.Fatalf("Describe(StripOffsets) not found")
	}
	if d.Name != "StripOffsets" || d.Cardinality != CardinalityVariable {
		t.Fatalf("Describe(StripOffsets) = %+v, want Name=StripOffsets Cardinality=Variable", d)
	}
}

func TestDescribeUnknownTag(t *testing.T) {
	if _, ok := Describe(Tag(0xBEEF)); ok {
		t.Fatalf("Describe matched an unregistered tag")
	}
}

func TestDescribePerSampleTags(t *testing.T) {
	for _, tag := range []Tag{BitsPerSample, SampleFormat, ExtraSamples} {
		d, ok := Describe(tag)
		if !ok {
			t.Fatalf("Describe(%v) not found", tag)
		}
		if d.Cardinality != CardinalityPerSample {
			t.Errorf("Describe(%v).Cardinality = %v, want CardinalityPerSample", tag, d.Cardinality)
		}
	}
}

func TestWidensToExactMatch(t *testing.T) {
	if !widensTo(FTShort, FTShort) {
		t.Fatalf("widensTo(FTShort, FTShort) = false, want true")
	}
}

func TestWidensToWithinNumericFamily(t *testing.T) {
	cases := []struct {
		actual, expected FieldType
		want              bool
	}{
		{FTShort, FTLong, true},
		{FTByte, FTLong8, true},
		{FTSShort, FTSLong, true},
		{FTFloat, FTDouble, true},
		{FTShort, FTSShort, false},
		{FTShort, FTFloat, false},
		{FTASCII, FTShort, false},
	}
	for _, c := range cases {
		if got := widensTo(c.actual, c.expected); got != c.want {
			t.Errorf("widensTo(%v, %v) = %v, want %v", c.actual, c.expected, got, c.want)
		}
	}
}
