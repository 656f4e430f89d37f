// Copyright 2024 The Chromium Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package fndef

import (
	"encoding/json"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestKeyString(t *testing.T) {
	for _, tc := range []struct {
		key  Key
		want string
	}{
		{
			key:  Key{Name: "add", Params: []string{"int", "int"}},
			want: "add(int,int)",
		},
		{
			key:  Key{Name: "main"},
			want: "main()",
		},
		{
			key:  Key{Name: "f", Params: []string{"unsigned long"}},
			want: "f(unsigned long)",
		},
	} {
		got := tc.key.String()
		if got != tc.want {
			t.Errorf("%#v.String()=%q; want %q", tc.key, got, tc.want)
		}
		parsed, err := ParseKey(got)
		if err != nil {
			t.Errorf("ParseKey(%q)=_, %v; want nil error", got, err)
			continue
		}
		if !parsed.Equal(tc.key) {
			t.Errorf("ParseKey(%q)=%#v; want %#v", got, parsed, tc.key)
		}
	}
}

func TestParseKeyError(t *testing.T) {
	for _, s := range []string{
		"",
		"add",
		"(int)",
		"add(int",
		"add(int,)",
		" add(int)",
	} {
		if k, err := ParseKey(s); err == nil {
			t.Errorf("ParseKey(%q)=%v, nil; want error", s, k)
		}
	}
}

func TestCompare(t *testing.T) {
	keys := []Key{
		{Name: "sub", Params: []string{"int", "int"}},
		{Name: "add", Params: []string{"int", "int"}},
		{Name: "add", Params: []string{"int"}},
		{Name: "add"},
		{Name: "add", Params: []string{"double", "int"}},
	}
	SortKeys(keys)
	var got []string
	for _, k := range keys {
		got = append(got, k.String())
	}
	want := []string{
		"add()",
		"add(double,int)",
		"add(int)",
		"add(int,int)",
		"sub(int,int)",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("SortKeys diff -want +got:\n%s", diff)
	}
}

func TestKeyJSON(t *testing.T) {
	v := struct {
		Key Key `json:"key"`
	}{
		Key: Key{Name: "add", Params: []string{"int", "int"}},
	}
	b, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("json.Marshal(%v)=_, %v; want nil error", v, err)
	}
	if got, want := string(b), `{"key":"add(int,int)"}`; got != want {
		t.Errorf("json.Marshal(%v)=%s; want %s", v, got, want)
	}
	var k Key
	if err := json.Unmarshal([]byte(`"sub(int,int)"`), &k); err != nil {
		t.Fatalf("json.Unmarshal=%v; want nil error", err)
	}
	if want := (Key{Name: "sub", Params: []string{"int", "int"}}); !k.Equal(want) {
		t.Errorf("json.Unmarshal=%v; want %v", k, want)
	}
}
