// Copyright © 2017 The Things Network
// Use of this source code is governed by the MIT license that can be found in the LICENSE file.

package types

import (
	"encoding/json"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func keys(r *Report) (keys []string) {
	for _, f := range r.Fields {
		keys = append(keys, f.Key)
	}
	return
}

func TestParseReport(t *testing.T) {
	Convey("Given a JSON object payload", t, func() {
		report, err := ParseReport(`{"taken": true, "pillCount": 3, "box": "box1", "note": null}`)

		Convey("There should be no error", func() {
			So(err, ShouldBeNil)
		})
		Convey("The fields should be in document order", func() {
			So(keys(report), ShouldResemble, []string{"taken", "pillCount", "box", "note"})
		})
		Convey("The values should keep their JSON types", func() {
			So(report.Fields[0].Value, ShouldEqual, true)
			So(report.Fields[1].Value, ShouldEqual, json.Number("3"))
			So(report.Fields[2].Value, ShouldEqual, "box1")
			So(report.Fields[3].Value, ShouldBeNil)
		})
		Convey("Taken should report the boolean", func() {
			taken, ok := report.Taken()
			So(ok, ShouldBeTrue)
			So(taken, ShouldBeTrue)
		})
	})

	Convey("Given a payload with a duplicate key", t, func() {
		report, err := ParseReport(`{"a": 1, "b": 2, "a": 3}`)
		So(err, ShouldBeNil)

		Convey("The key should appear once at its first position with the last value", func() {
			So(keys(report), ShouldResemble, []string{"a", "b"})
			So(report.Fields[0].Value, ShouldEqual, json.Number("3"))
		})
	})

	Convey("Given a payload with nested values", t, func() {
		report, err := ParseReport(`{"schedule": {"morning": [ 1, 2 ]}, "tags": [ "a" ]}`)
		So(err, ShouldBeNil)

		Convey("Nested values should be compacted", func() {
			So(string(report.Fields[0].Value.(json.RawMessage)), ShouldEqual, `{"morning":[1,2]}`)
			So(string(report.Fields[1].Value.(json.RawMessage)), ShouldEqual, `["a"]`)
		})
	})

	Convey("Given a non-boolean taken", t, func() {
		report, err := ParseReport(`{"taken": 1}`)
		So(err, ShouldBeNil)

		Convey("Taken should not be ok", func() {
			_, ok := report.Taken()
			So(ok, ShouldBeFalse)
		})
	})

	Convey("Given an object without taken", t, func() {
		report, err := ParseReport(`{}`)
		So(err, ShouldBeNil)
		So(report.Fields, ShouldBeEmpty)
		_, ok := report.Taken()
		So(ok, ShouldBeFalse)
	})

	Convey("Given payloads that are not JSON objects", t, func() {
		for _, payload := range []string{
			"not-json-text",
			"",
			"42",
			`"text"`,
			"[1, 2]",
			`{"a": 1`,
			`{"a": 1} trailing`,
		} {
			_, err := ParseReport(payload)
			So(err, ShouldNotBeNil)
		}
		_, err := ParseReport("42")
		So(err, ShouldEqual, ErrNotObject)
	})
}

func TestDecodeText(t *testing.T) {
	Convey("Valid UTF-8 should be returned as-is", t, func() {
		So(DecodeText([]byte("héllo")), ShouldEqual, "héllo")
	})
	Convey("Invalid UTF-8 should be replaced", t, func() {
		So(DecodeText([]byte{'a', 0xff, 'b'}), ShouldEqual, "a�b")
	})
}

func TestBrokerEndpoint(t *testing.T) {
	Convey("When parsing a broker address", t, func() {
		endpoint, err := ParseBrokerEndpoint("34.19.178.165:1883")
		So(err, ShouldBeNil)
		So(endpoint.Host, ShouldEqual, "34.19.178.165")
		So(endpoint.Port, ShouldEqual, 1883)
		So(endpoint.String(), ShouldEqual, "34.19.178.165:1883")
		So(endpoint.URL(), ShouldEqual, "tcp://34.19.178.165:1883")
	})
	Convey("When parsing invalid addresses", t, func() {
		for _, address := range []string{"localhost", ":1883", "localhost:port", "localhost:0", "localhost:70000"} {
			_, err := ParseBrokerEndpoint(address)
			So(err, ShouldNotBeNil)
		}
	})
}
