package udpdisc

import (
	"reflect"
	"testing"

	"github.com/dtn7/dtnme-go/pkg/bundle"
)

func TestAnnouncementRoundTrip(t *testing.T) {
	tests := []announcement{
		{Endpoint: bundle.MustNewEndpointID("dtn:foobar"), Port: 8000},
		{Endpoint: bundle.MustNewEndpointID("ipn:1.23"), Port: 12345},
	}

	for _, in := range tests {
		data, err := marshalAnnouncement(in)
		if err != nil {
			t.Fatalf("marshalAnnouncement(%v) failed: %v", in, err)
		}

		out, err := unmarshalAnnouncement(data)
		if err != nil {
			t.Fatalf("unmarshalAnnouncement failed: %v", err)
		}

		if !reflect.DeepEqual(in, out) {
			t.Fatalf("announcement changed after round trip: %v != %v", in, out)
		}
	}
}

func TestUnmarshalAnnouncementRejectsGarbage(t *testing.T) {
	if _, err := unmarshalAnnouncement([]byte{0xff, 0xff, 0xff}); err == nil {
		t.Fatal("expected an error for a malformed announcement")
	}
}
