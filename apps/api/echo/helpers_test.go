package echoapi_test

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"

	echoapi "github.com/trezcool/beasiswa/apps/api/echo"
	"github.com/trezcool/beasiswa/core"
	"github.com/trezcool/beasiswa/core/activity"
	"github.com/trezcool/beasiswa/core/news"
	"github.com/trezcool/beasiswa/core/portfolio"
	"github.com/trezcool/beasiswa/core/program"
	"github.com/trezcool/beasiswa/core/setting"
	"github.com/trezcool/beasiswa/core/ticket"
	"github.com/trezcool/beasiswa/core/user"
	emailsvc "github.com/trezcool/beasiswa/services/email"
	"github.com/trezcool/beasiswa/services/ratelimit"
	inmemdb "github.com/trezcool/beasiswa/storage/database/inmem"
	filestore "github.com/trezcool/beasiswa/storage/files"
	"github.com/trezcool/beasiswa/testutil"
)

var errMissingToken = httpErr{Error: "missing or malformed jwt"}

type httpErr struct {
	Error string `json:"error"`
}

type httpTest struct {
	name     string
	method   string
	path     string
	body     []byte
	token    string
	wantCode int
	wantData []byte
}

type testApp struct {
	server  *echoapi.Server
	conf    *core.Config
	usrRepo user.Repository
	logger  *testutil.Logger
}

// setup serves the API over in-memory repositories; `configure` may tweak the config first.
func setup(t *testing.T, configure ...func(*core.Config)) *testApp {
	t.Helper()

	conf := core.NewTestConfig()
	for _, fn := range configure {
		fn(conf)
	}
	logger := &testutil.Logger{}

	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)
	core.ParseEmailTemplates(conf, logger)
	user.LoadCommonPasswords(logger)
	emailsvc.ResetSentMessages()

	files, err := filestore.NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	db := inmemdb.NewDB()
	usrRepo := inmemdb.NewUserRepository(db)
	mailSvc := emailsvc.NewConsoleServiceMock(conf, logger)
	activitySvc := activity.NewService(inmemdb.NewActivityRepository(db), logger)
	settingSvc := setting.NewService(inmemdb.NewSettingRepository(db), activitySvc)

	server := echoapi.NewServer(echoapi.ServerDeps{
		Conf:         conf,
		Logger:       logger,
		Validate:     validate,
		Translator:   translator,
		Limiter:      ratelimit.NewInMemory(conf.RateLimit.Window),
		UserSvc:      user.NewService(usrRepo, settingSvc, activitySvc, files, mailSvc, conf),
		SettingSvc:   settingSvc,
		ActivitySvc:  activitySvc,
		PortfolioSvc: portfolio.NewService(inmemdb.NewPortfolioRepository(db), activitySvc, conf),
		ProgramSvc:   program.NewService(inmemdb.NewProgramRepository(db), activitySvc),
		NewsSvc:      news.NewService(inmemdb.NewNewsRepository(db), activitySvc),
		TicketSvc:    ticket.NewService(inmemdb.NewTicketRepository(db), activitySvc, files, mailSvc, conf),
	})
	t.Cleanup(func() { _ = server.Close() })

	return &testApp{server: server, conf: conf, usrRepo: usrRepo, logger: logger}
}

func (app *testApp) createUser(t *testing.T, name, email, role string) (user.User, string) {
	t.Helper()
	usr := testutil.CreateUser(t, app.usrRepo, name, email, role)
	return usr, app.getToken(t, usr)
}

func (app *testApp) getToken(t *testing.T, usr user.User) string {
	t.Helper()
	token, err := echoapi.GenerateToken(echoapi.GetUserClaims(usr, app.conf), app.conf)
	if err != nil {
		t.Fatalf("getToken() failed: %v", err)
	}
	return token
}

func (app *testApp) serve(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	app.server.ServeHTTP(rec, req)
	return rec
}

func (app *testApp) do(method, path, token string, data ...[]byte) *httptest.ResponseRecorder {
	return app.serve(newAuthRequest(method, path, token, data...))
}

func newAuthRequest(method, path, token string, data ...[]byte) *http.Request {
	var body bytes.Buffer
	if len(data) > 0 {
		body.Write(data[0])
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	return req
}

type formFile struct {
	field    string
	filename string
	data     []byte
}

func newMultipartRequest(t *testing.T, method, path, token string, fields map[string]string, files ...formFile) *http.Request {
	t.Helper()

	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	for _, f := range files {
		part, err := w.CreateFormFile(f.field, f.filename)
		require.NoError(t, err)
		_, err = part.Write(f.data)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	req := httptest.NewRequest(method, path, &body)
	req.Header.Set(echo.HeaderContentType, w.FormDataContentType())
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	return req
}

func marshalObj(t *testing.T, obj interface{}) []byte {
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marshalObj() failed: %v", err)
	}
	return data
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), v); err != nil {
		t.Fatalf("decode() failed: %v; body %s", err, rec.Body.String())
	}
}

func jsonBytesEqual(b1, b2 []byte) (bool, error) {
	var j1, j2 interface{}
	if err := json.Unmarshal(b1, &j1); err != nil {
		return false, err
	}
	if err := json.Unmarshal(b2, &j2); err != nil {
		return false, err
	}
	return reflect.DeepEqual(j1, j2), nil
}

func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	t.Helper()
	if rec.Code != tt.wantCode {
		t.Errorf("failed! code = %v; wantCode %v", rec.Code, tt.wantCode)
	}
	if tt.wantData == nil {
		return
	}
	ok, err := jsonBytesEqual(rec.Body.Bytes(), tt.wantData)
	if err != nil {
		t.Errorf("jsonBytesEqual() failed to compare; err %v", err)
	}
	if !ok {
		t.Errorf("failed! data = %v; wantData %v", rec.Body.String(), string(tt.wantData))
	}
}

func runHTTPTests(t *testing.T, app *testApp, tests []httpTest) {
	t.Helper()
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			rec := app.do(tt.method, tt.path, tt.token, tt.body)
			checkCodeAndData(t, tt, rec)
		})
	}
}
