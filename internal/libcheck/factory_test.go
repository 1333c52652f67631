package libcheck

import (
	"context"
	"testing"
)

func TestFactoryCreatesKnownValidators(t *testing.T) {
	f := &Factory{Workspace: "/tmp/ws", Runtime: "go"}

	tests := []struct {
		spec  string
		check func(t *testing.T, v Validator)
	}{
		{
			spec: "tcp_listening:int(4221)",
			check: func(t *testing.T, v Validator) {
				pv, ok := v.(*PortValidator)
				if !ok {
					t.Fatalf("wrong type %T", v)
				}
				if pv.Port != 4221 {
					t.Errorf("port = %d, want 4221", pv.Port)
				}
			},
		},
		{
			spec: "http_response_status:int(200)",
			check: func(t *testing.T, v Validator) {
				sv, ok := v.(*HTTPStatusValidator)
				if !ok {
					t.Fatalf("wrong type %T", v)
				}
				if sv.ExpectedStatus != 200 || sv.Port != 4221 {
					t.Errorf("got status=%d port=%d", sv.ExpectedStatus, sv.Port)
				}
			},
		},
		{
			spec: "http_get:string(/index),int(200),string(hello)",
			check: func(t *testing.T, v Validator) {
				gv, ok := v.(*HTTPGetValidator)
				if !ok {
					t.Fatalf("wrong type %T", v)
				}
				if gv.Path != "/index" || gv.ExpectedStatus != 200 {
					t.Errorf("got path=%q status=%d", gv.Path, gv.ExpectedStatus)
				}
				if gv.ExpectedBody == nil || *gv.ExpectedBody != "hello" {
					t.Errorf("expected body %v", gv.ExpectedBody)
				}
			},
		},
		{
			spec: "http_get:string(/index),int(404)",
			check: func(t *testing.T, v Validator) {
				gv := v.(*HTTPGetValidator)
				if gv.ExpectedBody != nil {
					t.Errorf("body should be unset, got %q", *gv.ExpectedBody)
				}
			},
		},
		{
			spec: "http_header_present:string(Content-Type),bool(true)",
			check: func(t *testing.T, v Validator) {
				hv, ok := v.(*HTTPHeaderPresentValidator)
				if !ok {
					t.Fatalf("wrong type %T", v)
				}
				if hv.HeaderName != "Content-Type" || !hv.ShouldExist {
					t.Errorf("got name=%q shouldExist=%v", hv.HeaderName, hv.ShouldExist)
				}
			},
		},
		{
			spec: "http_get_with_header:string(/user-agent),string(User-Agent),string(curl),int(200)",
			check: func(t *testing.T, v Validator) {
				hv, ok := v.(*HTTPGetWithHeaderValidator)
				if !ok {
					t.Fatalf("wrong type %T", v)
				}
				if hv.HeaderName != "User-Agent" || hv.HeaderValue != "curl" {
					t.Errorf("got %q=%q", hv.HeaderName, hv.HeaderValue)
				}
			},
		},
		{
			spec: "concurrent_requests:int(5),string(/),int(200)",
			check: func(t *testing.T, v Validator) {
				cv, ok := v.(*ConcurrentRequestsValidator)
				if !ok {
					t.Fatalf("wrong type %T", v)
				}
				if cv.NumConnections != 5 {
					t.Errorf("connections = %d", cv.NumConnections)
				}
			},
		},
		{
			spec: "can_compile:bool(true)",
			check: func(t *testing.T, v Validator) {
				cv, ok := v.(*CanCompileValidator)
				if !ok {
					t.Fatalf("wrong type %T", v)
				}
				if !cv.ExpectedSuccess || cv.Workspace != "/tmp/ws" || cv.Runtime != "go" {
					t.Errorf("got %+v", cv)
				}
			},
		},
		{
			spec: "rate_limit:string(/jobs),string(POST),int(100),int(1000),int(90)",
			check: func(t *testing.T, v Validator) {
				rv, ok := v.(*RateLimitValidator)
				if !ok {
					t.Fatalf("wrong type %T", v)
				}
				if rv.Requests != 100 || rv.WindowMs != 1000 || rv.ExpectedRejected != 90 {
					t.Errorf("got %+v", rv)
				}
			},
		},
		{
			spec: "graceful_shutdown:string(./server),int(5000)",
			check: func(t *testing.T, v Validator) {
				gv, ok := v.(*GracefulShutdownValidator)
				if !ok {
					t.Fatalf("wrong type %T", v)
				}
				if gv.BinaryPath != "./server" || gv.TimeoutMs != 5000 {
					t.Errorf("got %+v", gv)
				}
				if gv.StartupWaitMs != 1000 || gv.ExpectedExitCode != 0 {
					t.Errorf("defaults wrong: %+v", gv)
				}
				if gv.Workspace != "/tmp/ws" {
					t.Errorf("workspace = %q", gv.Workspace)
				}
			},
		},
		{
			spec: "concurrent_access:int(4221),string(/),int(10),int(100)",
			check: func(t *testing.T, v Validator) {
				cv, ok := v.(*ConcurrentAccessValidator)
				if !ok {
					t.Fatalf("wrong type %T", v)
				}
				if cv.ConcurrentCount != 10 || cv.OperationsPerClient != 100 {
					t.Errorf("got %+v", cv)
				}
				if cv.TimeoutMs != 5000 {
					t.Errorf("timeout = %d, want default 5000", cv.TimeoutMs)
				}
			},
		},
		{
			spec: "http_json_exists:string(/stats),string(GET),string(total),string(pending)",
			check: func(t *testing.T, v Validator) {
				jv, ok := v.(*HTTPJsonExistsValidator)
				if !ok {
					t.Fatalf("wrong type %T", v)
				}
				if len(jv.Fields) != 2 || jv.Fields[0] != "total" || jv.Fields[1] != "pending" {
					t.Errorf("fields = %v", jv.Fields)
				}
			},
		},
		{
			spec: "job_submission_verified",
			check: func(t *testing.T, v Validator) {
				jv, ok := v.(*JobSubmissionVerified)
				if !ok {
					t.Fatalf("wrong type %T", v)
				}
				if jv.JobType != "test" || jv.Payload != "data" || jv.Port != 8080 {
					t.Errorf("defaults wrong: %+v", jv)
				}
			},
		},
		{
			spec: "job_processing_verified:int(500),string(done)",
			check: func(t *testing.T, v Validator) {
				jv, ok := v.(*JobProcessingVerified)
				if !ok {
					t.Fatalf("wrong type %T", v)
				}
				if jv.WaitMs != 500 || jv.ExpectedStatus != "done" {
					t.Errorf("got %+v", jv)
				}
			},
		},
		{
			spec: "worker_pool_concurrent",
			check: func(t *testing.T, v Validator) {
				wv, ok := v.(*WorkerPoolConcurrent)
				if !ok {
					t.Fatalf("wrong type %T", v)
				}
				if wv.WorkerCount != 4 || wv.JobCount != 4 || wv.MaxTotalMs != 1000 {
					t.Errorf("defaults wrong: %+v", wv)
				}
			},
		},
		{
			spec: "job_result:string(echo),string(hi),string(hi)",
			check: func(t *testing.T, v Validator) {
				jv, ok := v.(*JobResultVerified)
				if !ok {
					t.Fatalf("wrong type %T", v)
				}
				if jv.ExpectedResult != "hi" {
					t.Errorf("got %+v", jv)
				}
			},
		},
		{
			spec: "job_retry:string(flaky),int(2)",
			check: func(t *testing.T, v Validator) {
				jv, ok := v.(*JobRetryVerified)
				if !ok {
					t.Fatalf("wrong type %T", v)
				}
				if jv.MaxRetries != 2 {
					t.Errorf("got %+v", jv)
				}
			},
		},
		{
			spec: "worker_scale_up",
			check: func(t *testing.T, v Validator) {
				wv, ok := v.(*WorkerScaleUp)
				if !ok {
					t.Fatalf("wrong type %T", v)
				}
				if wv.InitialWorkers != 2 || wv.JobCount != 50 || wv.ExpectedMinWorkers != 4 {
					t.Errorf("defaults wrong: %+v", wv)
				}
			},
		},
		{
			spec: "http_request:string(POST),string(/jobs),string({\"type\":\"test\"}),int(201)",
			check: func(t *testing.T, v Validator) {
				rv, ok := v.(*HTTPRequestValidator)
				if !ok {
					t.Fatalf("wrong type %T", v)
				}
				if rv.Method != "POST" || rv.ExpectedStatus != 201 || rv.Body == nil {
					t.Errorf("got %+v", rv)
				}
			},
		},
		{
			spec: "http_request:string(GET),string(/health)",
			check: func(t *testing.T, v Validator) {
				rv := v.(*HTTPRequestValidator)
				if rv.ExpectedStatus != 200 || rv.Body != nil {
					t.Errorf("defaults wrong: %+v", rv)
				}
			},
		},
		{
			spec: "http_health_check:string(/health),int(200),string(status),string(ok)",
			check: func(t *testing.T, v Validator) {
				hv, ok := v.(*HTTPHealthCheck)
				if !ok {
					t.Fatalf("wrong type %T", v)
				}
				if hv.ExpectedField != "status" || hv.ExpectedValue != "ok" {
					t.Errorf("got %+v", hv)
				}
			},
		},
	}
	for _, test := range tests {
		t.Run(test.spec, func(t *testing.T) {
			v, err := f.Create(test.spec)
			if err != nil {
				t.Fatalf("Create(%q): %v", test.spec, err)
			}
			test.check(t, v)
		})
	}
}

func TestFactoryAliases(t *testing.T) {
	f := &Factory{}

	v, err := f.Create("http_path_root:int(200)")
	if err != nil {
		t.Fatal(err)
	}
	gv, ok := v.(*HTTPGetValidator)
	if !ok {
		t.Fatalf("wrong type %T", v)
	}
	if gv.Path != "/" {
		t.Errorf("path = %q", gv.Path)
	}

	v, err = f.Create("http_path_unknown:int(404)")
	if err != nil {
		t.Fatal(err)
	}
	gv = v.(*HTTPGetValidator)
	if gv.Path != "/nonexistent-path-for-testing" || gv.ExpectedStatus != 404 {
		t.Errorf("got %+v", gv)
	}

	v, err = f.Create("http_echo:string(abc),string(abc)")
	if err != nil {
		t.Fatal(err)
	}
	gv = v.(*HTTPGetValidator)
	if gv.Path != "/echo/abc" || gv.ExpectedBody == nil || *gv.ExpectedBody != "abc" {
		t.Errorf("got %+v", gv)
	}

	v, err = f.Create("http_header_server:bool(true)")
	if err != nil {
		t.Fatal(err)
	}
	hv, ok := v.(*HTTPHeaderPresentValidator)
	if !ok {
		t.Fatalf("wrong type %T", v)
	}
	if hv.HeaderName != "Server" {
		t.Errorf("header = %q", hv.HeaderName)
	}

	v, err = f.Create("http_user_agent:string(foobar/1.2.3),string(foobar/1.2.3)")
	if err != nil {
		t.Fatal(err)
	}
	uv, ok := v.(*HTTPGetWithHeaderValidator)
	if !ok {
		t.Fatalf("wrong type %T", v)
	}
	if uv.Path != "/user-agent" || uv.HeaderValue != "foobar/1.2.3" {
		t.Errorf("got %+v", uv)
	}

	v, err = f.Create("http_query_param:string(q),string(golang),string(golang)")
	if err != nil {
		t.Fatal(err)
	}
	gv = v.(*HTTPGetValidator)
	if gv.Path != "/search?q=golang" {
		t.Errorf("path = %q", gv.Path)
	}

	v, err = f.Create("http_file_not_found:string(missing.txt),int(404)")
	if err != nil {
		t.Fatal(err)
	}
	gv = v.(*HTTPGetValidator)
	if gv.Path != "/files/missing.txt" {
		t.Errorf("path = %q", gv.Path)
	}

	v, err = f.Create("http_gzip_encoding:string(/echo/test)")
	if err != nil {
		t.Fatal(err)
	}
	cv, ok := v.(*HTTPGetCompressedValidator)
	if !ok {
		t.Fatalf("wrong type %T", v)
	}
	if cv.Encoding != "gzip" {
		t.Errorf("encoding = %q", cv.Encoding)
	}

	v, err = f.Create("http_concurrent_clients:int(8)")
	if err != nil {
		t.Fatal(err)
	}
	ccv, ok := v.(*ConcurrentRequestsValidator)
	if !ok {
		t.Fatalf("wrong type %T", v)
	}
	if ccv.NumConnections != 8 || ccv.Path != "/" {
		t.Errorf("got %+v", ccv)
	}
}

func TestFactoryUnknownValidator(t *testing.T) {
	f := &Factory{}
	v, err := f.Create("quantum_entanglement:int(2)")
	if err != nil {
		t.Fatal(err)
	}
	nv, ok := v.(*NotImplementedValidator)
	if !ok {
		t.Fatalf("wrong type %T", v)
	}
	tc, err := nv.Validate(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if tc.Passed() {
		t.Error("unknown validator should fail")
	}
	want := "validator 'quantum_entanglement' not implemented yet"
	if tc.Details != want {
		t.Errorf("details = %q, want %q", tc.Details, want)
	}
}

func TestFactoryMissingParams(t *testing.T) {
	f := &Factory{}
	specs := []string{
		"tcp_listening",
		"http_get:string(/)",
		"http_header_present:string(Server)",
		"rate_limit:string(/),string(GET),int(10),int(1000)",
		"job_result:string(echo),string(hi)",
	}
	for _, spec := range specs {
		if _, err := f.Create(spec); err == nil {
			t.Errorf("Create(%q) should fail on missing params", spec)
		}
	}
}

func TestFactoryDockerRequiresConstructor(t *testing.T) {
	f := &Factory{}
	if _, err := f.Create("docker:string(go1.22),string(exit:0)"); err == nil {
		t.Error("docker without a constructor should fail")
	}

	called := false
	f.Docker = func(imageKey, expectation string, timeoutSecs int64) (Validator, error) {
		called = true
		if imageKey != "go1.22" || expectation != "exit:0" || timeoutSecs != 90 {
			t.Errorf("got image=%q expectation=%q timeout=%d", imageKey, expectation, timeoutSecs)
		}
		return &NotImplementedValidator{ValidatorName: "docker"}, nil
	}
	if _, err := f.Create("docker:string(go1.22),string(exit:0),int(90)"); err != nil {
		t.Fatal(err)
	}
	if !called {
		t.Error("docker constructor not invoked")
	}
}
