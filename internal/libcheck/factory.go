package libcheck

import (
	"context"
	"fmt"
)

// DockerConstructor builds the sandboxed container validator for an
// image key, an expectation DSL string and an optional timeout in
// seconds (0 selects the default). Wired in by the caller so this
// package stays free of a docker dependency.
type DockerConstructor func(imageKey, expectation string, timeoutSecs int64) (Validator, error)

// Factory turns parsed validator specs into runnable validators. The
// catalogue of known validator kinds lives here; names outside it
// produce a NotImplementedValidator instead of an error so task data
// may ship specs ahead of engine support.
type Factory struct {
	Workspace string
	Runtime   string
	Docker    DockerConstructor
}

// Create parses a spec string and constructs the validator it names.
func (f *Factory) Create(spec string) (Validator, error) {
	parsed, err := ParseValidator(spec)
	if err != nil {
		return nil, err
	}
	return f.CreateFromParsed(parsed)
}

// CreateFromParsed dispatches on the validator name. Several names are
// aliases that preset arguments of a more general validator.
func (f *Factory) CreateFromParsed(p *ParsedValidator) (Validator, error) {
	switch p.Name {
	case "tcp_listening":
		return f.newTCPListening(p)
	case "http_response_status":
		return f.newHTTPResponseStatus(p)
	case "http_get", "http_path":
		return f.newHTTPGet(p)
	case "http_header_present":
		return f.newHTTPHeaderPresent(p)
	case "http_header_value":
		return f.newHTTPHeaderValue(p)
	case "http_get_with_header":
		return f.newHTTPGetWithHeader(p)
	case "concurrent_requests":
		return f.newConcurrentRequests(p)
	case "http_post_file":
		return f.newHTTPPostFile(p)
	case "can_compile":
		return f.newCanCompile(p)
	case "http_get_file":
		return f.newHTTPGetFile(p)
	case "http_get_compressed":
		return f.newHTTPGetCompressed(p)
	case "file_contents_match":
		return f.newFileContentsMatch(p)
	case "http_json_exists":
		return f.newHTTPJsonExists(p)
	case "http_json_field":
		return f.newHTTPJsonField(p)
	case "http_post_json":
		return f.newHTTPPostJson(p)
	case "rate_limit":
		return f.newRateLimit(p)
	case "graceful_shutdown":
		return f.newGracefulShutdown(p)
	case "concurrent_access":
		return f.newConcurrentAccess(p)
	case "job_submission_verified":
		return f.newJobSubmissionVerified(p)
	case "job_processing_verified":
		return f.newJobProcessingVerified(p)
	case "worker_pool_concurrent":
		return f.newWorkerPoolConcurrent(p)
	case "job_result":
		return f.newJobResult(p)
	case "job_priority":
		return f.newJobPriority(p)
	case "job_timeout":
		return f.newJobTimeout(p)
	case "job_timeout_reason":
		return f.newJobTimeoutReason(p)
	case "job_retry":
		return f.newJobRetry(p)
	case "worker_scale_up":
		return f.newWorkerScaleUp(p)
	case "worker_scale_down":
		return f.newWorkerScaleDown(p)
	case "http_request":
		return f.newHTTPRequest(p)
	case "http_json_field_nested":
		return f.newHTTPJsonFieldNested(p)
	case "http_health_check":
		return f.newHTTPHealthCheck(p)
	case "http_json_field_value":
		return f.newHTTPJsonFieldValue(p)
	case "http_status_check":
		return f.newHTTPStatusCheck(p)
	case "docker":
		return f.newDocker(p)
	case "http_path_root":
		return f.newHTTPPathRoot(p)
	case "http_path_unknown":
		return f.newHTTPPathUnknown(p)
	case "http_header_server":
		return f.newHeaderPresentAlias(p, "Server")
	case "http_header_date":
		return f.newHeaderPresentAlias(p, "Date")
	case "http_header_connection":
		return f.newHTTPHeaderConnection(p)
	case "http_echo":
		return f.newHTTPEcho(p)
	case "http_user_agent":
		return f.newHTTPUserAgent(p)
	case "http_concurrent_clients":
		return f.newHTTPConcurrentClients(p)
	case "http_query_param":
		return f.newHTTPQueryParam(p)
	case "http_query_missing":
		return f.newHTTPQueryMissing(p)
	case "http_file_not_found":
		return f.newHTTPFileNotFound(p)
	case "http_content_type":
		return f.newHTTPContentType(p)
	case "http_gzip_encoding":
		return f.newHTTPGzipEncoding(p)
	case "http_file_get":
		return f.newHTTPFileGet(p)
	case "http_file_traversal":
		return f.newHTTPFileTraversal(p)
	case "http_query_encoded":
		return f.newHTTPQueryEncoded(p)
	case "tcp_read_request":
		return &HTTPGetValidator{Port: defaultHTTPPort, Path: "/", ExpectedStatus: 200}, nil
	case "http_keepalive":
		return f.newHTTPKeepalive(p)
	default:
		return &NotImplementedValidator{ValidatorName: p.Name}, nil
	}
}

// NotImplementedValidator stands in for validator names the engine does
// not know. Running it always fails, it never errors.
type NotImplementedValidator struct {
	ValidatorName string
}

func (v *NotImplementedValidator) Name() string {
	return fmt.Sprintf("validator '%s'", v.ValidatorName)
}

func (v *NotImplementedValidator) Validate(ctx context.Context) (TestCase, error) {
	return Failing(v.Name(), fmt.Sprintf("validator '%s' not implemented yet", v.ValidatorName)), nil
}

// tcp_listening:int(4221)
func (f *Factory) newTCPListening(p *ParsedValidator) (Validator, error) {
	port, err := p.IntParam(0)
	if err != nil {
		return nil, err
	}
	return &PortValidator{Port: int(port)}, nil
}

// http_response_status:int(200)
func (f *Factory) newHTTPResponseStatus(p *ParsedValidator) (Validator, error) {
	status, err := p.IntParam(0)
	if err != nil {
		return nil, err
	}
	return &HTTPStatusValidator{Port: defaultHTTPPort, ExpectedStatus: int(status)}, nil
}

// http_get:string(/path),int(200)[,string(expected_body)]
func (f *Factory) newHTTPGet(p *ParsedValidator) (Validator, error) {
	path, err := p.StringParam(0)
	if err != nil {
		return nil, err
	}
	status, err := p.IntParam(1)
	if err != nil {
		return nil, err
	}
	v := &HTTPGetValidator{Port: defaultHTTPPort, Path: path, ExpectedStatus: int(status)}
	if body, err := p.StringParam(2); err == nil {
		v.ExpectedBody = &body
	}
	return v, nil
}

// http_header_present:string(Content-Type),bool(true)
func (f *Factory) newHTTPHeaderPresent(p *ParsedValidator) (Validator, error) {
	name, err := p.StringParam(0)
	if err != nil {
		return nil, err
	}
	shouldExist, err := p.BoolParam(1)
	if err != nil {
		return nil, err
	}
	return &HTTPHeaderPresentValidator{Port: defaultHTTPPort, Path: "/", HeaderName: name, ShouldExist: shouldExist}, nil
}

// http_header_value:string(Content-Encoding),string(gzip)
func (f *Factory) newHTTPHeaderValue(p *ParsedValidator) (Validator, error) {
	name, err := p.StringParam(0)
	if err != nil {
		return nil, err
	}
	value, err := p.StringParam(1)
	if err != nil {
		return nil, err
	}
	return &HTTPHeaderValueValidator{Port: defaultHTTPPort, Path: "/", HeaderName: name, ExpectedValue: value}, nil
}

// http_get_with_header:string(/path),string(Name),string(value),int(200)[,string(body)]
func (f *Factory) newHTTPGetWithHeader(p *ParsedValidator) (Validator, error) {
	path, err := p.StringParam(0)
	if err != nil {
		return nil, err
	}
	name, err := p.StringParam(1)
	if err != nil {
		return nil, err
	}
	value, err := p.StringParam(2)
	if err != nil {
		return nil, err
	}
	status, err := p.IntParam(3)
	if err != nil {
		return nil, err
	}
	v := &HTTPGetWithHeaderValidator{
		Port: defaultHTTPPort, Path: path,
		HeaderName: name, HeaderValue: value,
		ExpectedStatus: int(status),
	}
	if body, err := p.StringParam(4); err == nil {
		v.ExpectedBody = &body
	}
	return v, nil
}

// concurrent_requests:int(3),string(/echo/test),int(200)
func (f *Factory) newConcurrentRequests(p *ParsedValidator) (Validator, error) {
	n, err := p.IntParam(0)
	if err != nil {
		return nil, err
	}
	path, err := p.StringParam(1)
	if err != nil {
		return nil, err
	}
	status, err := p.IntParam(2)
	if err != nil {
		return nil, err
	}
	return &ConcurrentRequestsValidator{Port: defaultHTTPPort, NumConnections: int(n), Path: path, ExpectedStatus: int(status)}, nil
}

// http_post_file:string(/files/upload.txt),string(hello world),int(201)
func (f *Factory) newHTTPPostFile(p *ParsedValidator) (Validator, error) {
	path, err := p.StringParam(0)
	if err != nil {
		return nil, err
	}
	body, err := p.StringParam(1)
	if err != nil {
		return nil, err
	}
	status, err := p.IntParam(2)
	if err != nil {
		return nil, err
	}
	return &HTTPPostFileValidator{Port: defaultHTTPPort, Path: path, Body: body, ExpectedStatus: int(status)}, nil
}

// can_compile:bool(true)
func (f *Factory) newCanCompile(p *ParsedValidator) (Validator, error) {
	expected, err := p.BoolParam(0)
	if err != nil {
		return nil, err
	}
	return &CanCompileValidator{ExpectedSuccess: expected, Workspace: f.Workspace, Runtime: f.Runtime}, nil
}

// http_get_file:string(/files/test.txt),int(200)
func (f *Factory) newHTTPGetFile(p *ParsedValidator) (Validator, error) {
	path, err := p.StringParam(0)
	if err != nil {
		return nil, err
	}
	status, err := p.IntParam(1)
	if err != nil {
		return nil, err
	}
	return &HTTPGetFileValidator{Port: defaultHTTPPort, Path: path, ExpectedStatus: int(status)}, nil
}

// http_get_compressed:string(/path),string(gzip)
func (f *Factory) newHTTPGetCompressed(p *ParsedValidator) (Validator, error) {
	path, err := p.StringParam(0)
	if err != nil {
		return nil, err
	}
	encoding, err := p.StringParam(1)
	if err != nil {
		return nil, err
	}
	return &HTTPGetCompressedValidator{Port: defaultHTTPPort, Path: path, Encoding: encoding}, nil
}

// file_contents_match:string(/path/to/file),string(expected content)
func (f *Factory) newFileContentsMatch(p *ParsedValidator) (Validator, error) {
	path, err := p.StringParam(0)
	if err != nil {
		return nil, err
	}
	content, err := p.StringParam(1)
	if err != nil {
		return nil, err
	}
	return &FileContentsMatchValidator{Path: path, ExpectedContent: content}, nil
}

// http_json_exists:string(/path),string(GET),string(field1),string(field2),...
func (f *Factory) newHTTPJsonExists(p *ParsedValidator) (Validator, error) {
	path, err := p.StringParam(0)
	if err != nil {
		return nil, err
	}
	method, err := p.StringParam(1)
	if err != nil {
		return nil, err
	}
	var fields []string
	for i := 2; i < len(p.Params); i++ {
		if field, ok := p.Params[i].AsString(); ok {
			fields = append(fields, field)
		}
	}
	return &HTTPJsonExistsValidator{Port: defaultHTTPPort, Path: path, Method: method, Fields: fields}, nil
}

// http_json_field:string(/path),string(GET),string(field),string(value)
func (f *Factory) newHTTPJsonField(p *ParsedValidator) (Validator, error) {
	path, err := p.StringParam(0)
	if err != nil {
		return nil, err
	}
	method, err := p.StringParam(1)
	if err != nil {
		return nil, err
	}
	field, err := p.StringParam(2)
	if err != nil {
		return nil, err
	}
	value, err := p.StringParam(3)
	if err != nil {
		return nil, err
	}
	return &HTTPJsonFieldValidator{Port: defaultHTTPPort, Path: path, Method: method, Field: field, ExpectedValue: value}, nil
}

// http_post_json:string(/path),string({"key":"value"}),int(201)
func (f *Factory) newHTTPPostJson(p *ParsedValidator) (Validator, error) {
	path, err := p.StringParam(0)
	if err != nil {
		return nil, err
	}
	body, err := p.StringParam(1)
	if err != nil {
		return nil, err
	}
	status, err := p.IntParam(2)
	if err != nil {
		return nil, err
	}
	return &HTTPPostJsonValidator{Port: defaultHTTPPort, Path: path, Body: body, ExpectedStatus: int(status)}, nil
}

// rate_limit:string(/path),string(POST),int(100),int(1000),int(90)
func (f *Factory) newRateLimit(p *ParsedValidator) (Validator, error) {
	path, err := p.StringParam(0)
	if err != nil {
		return nil, err
	}
	method, err := p.StringParam(1)
	if err != nil {
		return nil, err
	}
	requests, err := p.IntParam(2)
	if err != nil {
		return nil, err
	}
	windowMs, err := p.IntParam(3)
	if err != nil {
		return nil, err
	}
	rejected, err := p.IntParam(4)
	if err != nil {
		return nil, err
	}
	return &RateLimitValidator{
		Port: defaultHTTPPort, Path: path, Method: method,
		Requests: int(requests), WindowMs: windowMs, ExpectedRejected: int(rejected),
	}, nil
}

// graceful_shutdown:string(./binary),int(5000)
func (f *Factory) newGracefulShutdown(p *ParsedValidator) (Validator, error) {
	binary, err := p.StringParam(0)
	if err != nil {
		return nil, err
	}
	timeoutMs, err := p.IntParam(1)
	if err != nil {
		return nil, err
	}
	return &GracefulShutdownValidator{
		BinaryPath: binary, TimeoutMs: timeoutMs,
		ExpectedExitCode: 0, StartupWaitMs: 1000,
		Workspace: f.Workspace,
	}, nil
}

// concurrent_access:int(4221),string(/path),int(10),int(100)
func (f *Factory) newConcurrentAccess(p *ParsedValidator) (Validator, error) {
	port, err := p.IntParam(0)
	if err != nil {
		return nil, err
	}
	path, err := p.StringParam(1)
	if err != nil {
		return nil, err
	}
	clients, err := p.IntParam(2)
	if err != nil {
		return nil, err
	}
	ops, err := p.IntParam(3)
	if err != nil {
		return nil, err
	}
	return &ConcurrentAccessValidator{
		Port: int(port), Path: path,
		ConcurrentCount: int(clients), OperationsPerClient: int(ops),
		TimeoutMs: defaultConcurrentTimeoutMs,
	}, nil
}

// job_submission_verified:string(test),string(payload)
func (f *Factory) newJobSubmissionVerified(p *ParsedValidator) (Validator, error) {
	return &JobSubmissionVerified{
		Port:    defaultScenarioPort,
		JobType: p.StringParamOr(0, "test"),
		Payload: p.StringParamOr(1, "data"),
	}, nil
}

// job_processing_verified:int(200),string(completed)
func (f *Factory) newJobProcessingVerified(p *ParsedValidator) (Validator, error) {
	return &JobProcessingVerified{
		Port:           defaultScenarioPort,
		JobType:        "test",
		Payload:        "data",
		WaitMs:         p.IntParamOr(0, 200),
		ExpectedStatus: p.StringParamOr(1, "completed"),
	}, nil
}

// worker_pool_concurrent:int(4),int(4),int(500)
func (f *Factory) newWorkerPoolConcurrent(p *ParsedValidator) (Validator, error) {
	return &WorkerPoolConcurrent{
		Port:          defaultScenarioPort,
		WorkerCount:   int(p.IntParamOr(0, 4)),
		JobCount:      int(p.IntParamOr(1, 4)),
		JobDurationMs: 500,
		MaxTotalMs:    p.IntParamOr(2, 1000),
	}, nil
}

// job_result:string(echo),string(hello),string(hello)
func (f *Factory) newJobResult(p *ParsedValidator) (Validator, error) {
	jobType, err := p.StringParam(0)
	if err != nil {
		return nil, err
	}
	payload, err := p.StringParam(1)
	if err != nil {
		return nil, err
	}
	expected, err := p.StringParam(2)
	if err != nil {
		return nil, err
	}
	return &JobResultVerified{Port: defaultScenarioPort, JobType: jobType, Payload: payload, ExpectedResult: expected}, nil
}

// job_priority:int(10),int(1)
func (f *Factory) newJobPriority(p *ParsedValidator) (Validator, error) {
	return &JobPriorityVerified{
		Port:         defaultScenarioPort,
		HighPriority: int(p.IntParamOr(0, 10)),
		LowPriority:  int(p.IntParamOr(1, 1)),
	}, nil
}

// job_timeout:int(5000),string(failed)
func (f *Factory) newJobTimeout(p *ParsedValidator) (Validator, error) {
	return &JobTimeoutVerified{
		Port:           defaultScenarioPort,
		JobDurationMs:  p.IntParamOr(0, 5000),
		ExpectedStatus: p.StringParamOr(1, "failed"),
	}, nil
}

// job_timeout_reason:string(timeout)
func (f *Factory) newJobTimeoutReason(p *ParsedValidator) (Validator, error) {
	return &JobTimeoutReasonVerified{
		Port:           defaultScenarioPort,
		ExpectedReason: p.StringParamOr(0, "timeout"),
	}, nil
}

// job_retry:string(flaky),int(3)
func (f *Factory) newJobRetry(p *ParsedValidator) (Validator, error) {
	return &JobRetryVerified{
		Port:       defaultScenarioPort,
		JobType:    p.StringParamOr(0, "flaky"),
		MaxRetries: int(p.IntParamOr(1, 3)),
	}, nil
}

// worker_scale_up:int(2),int(50),int(4)
func (f *Factory) newWorkerScaleUp(p *ParsedValidator) (Validator, error) {
	return &WorkerScaleUp{
		Port:               defaultScenarioPort,
		InitialWorkers:     int(p.IntParamOr(0, 2)),
		JobCount:           int(p.IntParamOr(1, 50)),
		ExpectedMinWorkers: int(p.IntParamOr(2, 4)),
	}, nil
}

// worker_scale_down:int(8),int(4)
func (f *Factory) newWorkerScaleDown(p *ParsedValidator) (Validator, error) {
	return &WorkerScaleDown{
		Port:               defaultScenarioPort,
		InitialWorkers:     int(p.IntParamOr(0, 8)),
		ExpectedMaxWorkers: int(p.IntParamOr(1, 4)),
	}, nil
}

// http_request:string(POST),string(/jobs),string({"type":"test"}),int(201)
func (f *Factory) newHTTPRequest(p *ParsedValidator) (Validator, error) {
	method, err := p.StringParam(0)
	if err != nil {
		return nil, err
	}
	path, err := p.StringParam(1)
	if err != nil {
		return nil, err
	}
	v := &HTTPRequestValidator{
		Port: defaultScenarioPort, Method: method, Path: path,
		ExpectedStatus: int(p.IntParamOr(3, 200)),
	}
	if body, err := p.StringParam(2); err == nil {
		v.Body = &body
	}
	return v, nil
}

// http_json_field_nested:string(/stats),string(workers.total)
func (f *Factory) newHTTPJsonFieldNested(p *ParsedValidator) (Validator, error) {
	path, err := p.StringParam(0)
	if err != nil {
		return nil, err
	}
	fieldPath, err := p.StringParam(1)
	if err != nil {
		return nil, err
	}
	return &HTTPJsonFieldNested{Port: defaultScenarioPort, Path: path, FieldPath: fieldPath}, nil
}

// http_health_check:string(/health),int(200),string(status),string(ok)
func (f *Factory) newHTTPHealthCheck(p *ParsedValidator) (Validator, error) {
	path, err := p.StringParam(0)
	if err != nil {
		return nil, err
	}
	status, err := p.IntParam(1)
	if err != nil {
		return nil, err
	}
	field, err := p.StringParam(2)
	if err != nil {
		return nil, err
	}
	value, err := p.StringParam(3)
	if err != nil {
		return nil, err
	}
	return &HTTPHealthCheck{
		Port: defaultScenarioPort, Path: path,
		ExpectedStatus: int(status), ExpectedField: field, ExpectedValue: value,
	}, nil
}

// http_json_field_value:string(/path),string(field),string(value)
func (f *Factory) newHTTPJsonFieldValue(p *ParsedValidator) (Validator, error) {
	path, err := p.StringParam(0)
	if err != nil {
		return nil, err
	}
	field, err := p.StringParam(1)
	if err != nil {
		return nil, err
	}
	value, err := p.StringParam(2)
	if err != nil {
		return nil, err
	}
	return &HTTPJsonFieldValue{Port: defaultScenarioPort, Path: path, Field: field, ExpectedValue: value}, nil
}

// http_status_check:string(/path),int(200)
func (f *Factory) newHTTPStatusCheck(p *ParsedValidator) (Validator, error) {
	path, err := p.StringParam(0)
	if err != nil {
		return nil, err
	}
	status, err := p.IntParam(1)
	if err != nil {
		return nil, err
	}
	return &HTTPStatusCheck{Port: defaultScenarioPort, Path: path, ExpectedStatus: int(status)}, nil
}

// docker:string(go1.22-race),string(fail_if:stderr contains DATA RACE)[,int(120)]
func (f *Factory) newDocker(p *ParsedValidator) (Validator, error) {
	imageKey, err := p.StringParam(0)
	if err != nil {
		return nil, err
	}
	expectation, err := p.StringParam(1)
	if err != nil {
		return nil, err
	}
	timeoutSecs := p.IntParamOr(2, 0)
	if f.Docker == nil {
		return nil, fmt.Errorf("docker validators are not available")
	}
	return f.Docker(imageKey, expectation, timeoutSecs)
}

// http_path_root:int(200)
func (f *Factory) newHTTPPathRoot(p *ParsedValidator) (Validator, error) {
	status, err := p.IntParam(0)
	if err != nil {
		return nil, err
	}
	return &HTTPGetValidator{Port: defaultHTTPPort, Path: "/", ExpectedStatus: int(status)}, nil
}

// http_path_unknown:int(404)
func (f *Factory) newHTTPPathUnknown(p *ParsedValidator) (Validator, error) {
	status, err := p.IntParam(0)
	if err != nil {
		return nil, err
	}
	return &HTTPGetValidator{Port: defaultHTTPPort, Path: "/nonexistent-path-for-testing", ExpectedStatus: int(status)}, nil
}

// http_header_server:bool(true), http_header_date:bool(true)
func (f *Factory) newHeaderPresentAlias(p *ParsedValidator, header string) (Validator, error) {
	shouldExist, err := p.BoolParam(0)
	if err != nil {
		return nil, err
	}
	return &HTTPHeaderPresentValidator{Port: defaultHTTPPort, Path: "/", HeaderName: header, ShouldExist: shouldExist}, nil
}

// http_header_connection:string(close)
func (f *Factory) newHTTPHeaderConnection(p *ParsedValidator) (Validator, error) {
	value, err := p.StringParam(0)
	if err != nil {
		return nil, err
	}
	return &HTTPHeaderValueValidator{Port: defaultHTTPPort, Path: "/", HeaderName: "Connection", ExpectedValue: value}, nil
}

// http_echo:string(input),string(expected)
func (f *Factory) newHTTPEcho(p *ParsedValidator) (Validator, error) {
	input, err := p.StringParam(0)
	if err != nil {
		return nil, err
	}
	expected, err := p.StringParam(1)
	if err != nil {
		return nil, err
	}
	return &HTTPGetValidator{Port: defaultHTTPPort, Path: "/echo/" + input, ExpectedStatus: 200, ExpectedBody: &expected}, nil
}

// http_user_agent:string(agent),string(expected)
func (f *Factory) newHTTPUserAgent(p *ParsedValidator) (Validator, error) {
	agent, err := p.StringParam(0)
	if err != nil {
		return nil, err
	}
	expected, err := p.StringParam(1)
	if err != nil {
		return nil, err
	}
	return &HTTPGetWithHeaderValidator{
		Port: defaultHTTPPort, Path: "/user-agent",
		HeaderName: "User-Agent", HeaderValue: agent,
		ExpectedStatus: 200, ExpectedBody: &expected,
	}, nil
}

// http_concurrent_clients:int(5)
func (f *Factory) newHTTPConcurrentClients(p *ParsedValidator) (Validator, error) {
	n, err := p.IntParam(0)
	if err != nil {
		return nil, err
	}
	return &ConcurrentRequestsValidator{Port: defaultHTTPPort, NumConnections: int(n), Path: "/", ExpectedStatus: 200}, nil
}

// http_query_param:string(name),string(value),string(expected)
func (f *Factory) newHTTPQueryParam(p *ParsedValidator) (Validator, error) {
	name, err := p.StringParam(0)
	if err != nil {
		return nil, err
	}
	value, err := p.StringParam(1)
	if err != nil {
		return nil, err
	}
	expected, err := p.StringParam(2)
	if err != nil {
		return nil, err
	}
	path := fmt.Sprintf("/search?%s=%s", name, value)
	return &HTTPGetValidator{Port: defaultHTTPPort, Path: path, ExpectedStatus: 200, ExpectedBody: &expected}, nil
}

// http_query_missing:int(400)
func (f *Factory) newHTTPQueryMissing(p *ParsedValidator) (Validator, error) {
	status, err := p.IntParam(0)
	if err != nil {
		return nil, err
	}
	return &HTTPGetValidator{Port: defaultHTTPPort, Path: "/search", ExpectedStatus: int(status)}, nil
}

// http_file_not_found:string(missing.txt),int(404)
func (f *Factory) newHTTPFileNotFound(p *ParsedValidator) (Validator, error) {
	filename, err := p.StringParam(0)
	if err != nil {
		return nil, err
	}
	status, err := p.IntParam(1)
	if err != nil {
		return nil, err
	}
	return &HTTPGetValidator{Port: defaultHTTPPort, Path: "/files/" + filename, ExpectedStatus: int(status)}, nil
}

// http_content_type:string(test.txt),string(text/plain)
// TODO: verify the Content-Type value once a dedicated mime validator exists
func (f *Factory) newHTTPContentType(p *ParsedValidator) (Validator, error) {
	filename, err := p.StringParam(0)
	if err != nil {
		return nil, err
	}
	if _, err := p.StringParam(1); err != nil {
		return nil, err
	}
	return &HTTPGetFileValidator{Port: defaultHTTPPort, Path: "/files/" + filename, ExpectedStatus: 200}, nil
}

// http_gzip_encoding:string(/path),bool(true)
func (f *Factory) newHTTPGzipEncoding(p *ParsedValidator) (Validator, error) {
	path, err := p.StringParam(0)
	if err != nil {
		return nil, err
	}
	return &HTTPGetCompressedValidator{Port: defaultHTTPPort, Path: path, Encoding: "gzip"}, nil
}

// http_file_get:string(test.txt),string(hello world)
func (f *Factory) newHTTPFileGet(p *ParsedValidator) (Validator, error) {
	filename, err := p.StringParam(0)
	if err != nil {
		return nil, err
	}
	expected, err := p.StringParam(1)
	if err != nil {
		return nil, err
	}
	return &HTTPGetValidator{Port: defaultHTTPPort, Path: "/files/" + filename, ExpectedStatus: 200, ExpectedBody: &expected}, nil
}

// http_file_traversal:string(../etc/passwd),int(400)
func (f *Factory) newHTTPFileTraversal(p *ParsedValidator) (Validator, error) {
	traversal, err := p.StringParam(0)
	if err != nil {
		return nil, err
	}
	status, err := p.IntParam(1)
	if err != nil {
		return nil, err
	}
	return &HTTPGetValidator{Port: defaultHTTPPort, Path: "/files/" + traversal, ExpectedStatus: int(status)}, nil
}

// http_query_encoded:string(hello%20world),string(hello world)
func (f *Factory) newHTTPQueryEncoded(p *ParsedValidator) (Validator, error) {
	encoded, err := p.StringParam(0)
	if err != nil {
		return nil, err
	}
	decoded, err := p.StringParam(1)
	if err != nil {
		return nil, err
	}
	return &HTTPGetValidator{Port: defaultHTTPPort, Path: "/search?q=" + encoded, ExpectedStatus: 200, ExpectedBody: &decoded}, nil
}

/// http_keepalive:int(5)
// TODO: proper keepalive reuse of one connection needs a dedicated validator
func (f *Factory) newHTTPKeepalive(p *ParsedValidator) (Validator, error) {
	n, err := p.IntParam(0)
	if err != nil {
		return nil, err
	}
	return &ConcurrentRequestsValidator{Port: defaultHTTPPort, NumConnections: int(n), Path: "/", ExpectedStatus: 200}, nil
}
