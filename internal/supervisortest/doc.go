// Package supervisortest provides an in-memory fake of the Supervisor API and
// the Home Assistant core API it proxies.
//
// The fake speaks the Supervisor's {"result", "data"} envelope, keeps
// snapshots in memory, serves archive downloads with Range support and
// records every request so tests can assert on method, path, headers and
// body. Home Assistant endpoints are mounted under /homeassistant/api, the
// same place the real Supervisor proxies them.
//
//	fake := supervisortest.New()
//	srv := httptest.NewServer(fake)
//	defer srv.Close()
//
//	fake.AddSnapshot(map[string]any{"slug": "abc", "name": "Nightly"})
//	fake.FailNext(http.MethodPost, "/snapshots/abc/remove", 400, `{"result":"error"}`)
package supervisortest
