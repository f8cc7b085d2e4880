package echoapi_test

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	echoapi "github.com/trezcool/beasiswa/apps/api/echo"
	"github.com/trezcool/beasiswa/core/news"
	"github.com/trezcool/beasiswa/core/user"
)

func Test_newsApi(t *testing.T) {
	app := setup(t)
	_, adminToken := app.createUser(t, "Citra Admin", "citra@kampus.ac.id", user.RoleAdmin)
	_, aniToken := app.createUser(t, "Ani Student", "ani@kampus.ac.id", user.RoleUser)
	_, budiToken := app.createUser(t, "Budi Student", "budi@kampus.ac.id", user.RoleUser)

	runHTTPTests(t, app, []httpTest{
		{
			name:     "student cannot post",
			method:   http.MethodPost,
			path:     "/v1/admin/posts",
			body:     []byte(`{"title":"Webinar"}`),
			token:    aniToken,
			wantCode: http.StatusForbidden,
			wantData: marshalObj(t, httpErr{Error: "permission denied"}),
		},
		{
			name:     "title required",
			method:   http.MethodPost,
			path:     "/v1/admin/posts",
			body:     []byte(`{"content":"isi"}`),
			token:    adminToken,
			wantCode: http.StatusBadRequest,
			wantData: []byte(`{"title":"this field is required"}`),
		},
		{
			name:     "unknown post",
			method:   http.MethodPost,
			path:     "/v1/news/42/register",
			token:    aniToken,
			wantCode: http.StatusNotFound,
			wantData: marshalObj(t, httpErr{Error: "post not found"}),
		},
	})

	rec := app.do(http.MethodPost, "/v1/admin/posts", adminToken, []byte(`{"title":" Webinar Beasiswa ","content":"Daftar **sekarang**"}`))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var post news.Post
	decode(t, rec, &post)
	assert.Equal(t, "Webinar Beasiswa", post.Title)
	assert.Equal(t, news.DefaultCategory, post.Category)
	assert.True(t, post.IsPublished)

	registerPath := fmt.Sprintf("/v1/news/%d/register", post.ID)
	checkCodeAndData(t, httpTest{
		wantCode: http.StatusCreated,
		wantData: marshalObj(t, echoapi.RegisterResponse{Registered: true, Created: true}),
	}, app.do(http.MethodPost, registerPath, aniToken))
	checkCodeAndData(t, httpTest{
		wantCode: http.StatusOK,
		wantData: marshalObj(t, echoapi.RegisterResponse{Registered: true}),
	}, app.do(http.MethodPost, registerPath, aniToken))

	reactPath := fmt.Sprintf("/v1/news/%d/react", post.ID)
	checkCodeAndData(t, httpTest{wantCode: http.StatusOK, wantData: []byte(`{"reaction":"like"}`)},
		app.do(http.MethodPost, reactPath, aniToken, []byte(`{}`)))
	checkCodeAndData(t, httpTest{wantCode: http.StatusOK, wantData: []byte(`{"reaction":"dislike"}`)},
		app.do(http.MethodPost, reactPath, aniToken, []byte(`{"reaction":"dislike"}`)))
	checkCodeAndData(t, httpTest{wantCode: http.StatusOK, wantData: []byte(`{"reaction":null}`)},
		app.do(http.MethodPost, reactPath, aniToken, []byte(`{"reaction":"dislike"}`)))
	checkCodeAndData(t, httpTest{wantCode: http.StatusOK, wantData: []byte(`{"reaction":"like"}`)},
		app.do(http.MethodPost, reactPath, budiToken, []byte(`{"reaction":"like"}`)))
	checkCodeAndData(t, httpTest{wantCode: http.StatusBadRequest, wantData: []byte(`{"reaction":"reaction must be one of [like dislike]"}`)},
		app.do(http.MethodPost, reactPath, budiToken, []byte(`{"reaction":"love"}`)))

	bookmarkPath := fmt.Sprintf("/v1/news/%d/bookmark", post.ID)
	checkCodeAndData(t, httpTest{wantCode: http.StatusOK, wantData: []byte(`{"bookmarked":true}`)},
		app.do(http.MethodPost, bookmarkPath, aniToken))
	checkCodeAndData(t, httpTest{wantCode: http.StatusOK, wantData: []byte(`{"bookmarked":false}`)},
		app.do(http.MethodPost, bookmarkPath, aniToken))
	checkCodeAndData(t, httpTest{wantCode: http.StatusOK, wantData: []byte(`{"bookmarked":true}`)},
		app.do(http.MethodPost, bookmarkPath, aniToken))

	commentsPath := fmt.Sprintf("/v1/news/%d/comments", post.ID)
	rec = app.do(http.MethodPost, commentsPath, aniToken, []byte(`{"content":"Kapan dimulai?"}`))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var root news.Comment
	decode(t, rec, &root)

	rec = app.do(http.MethodPost, commentsPath, adminToken, []byte(fmt.Sprintf(`{"content":"Jam 10 pagi","parent_id":%d}`, root.ID)))
	require.Equal(t, http.StatusCreated, rec.Code)
	var reply news.Comment
	decode(t, rec, &reply)
	assert.Equal(t, root.ID, reply.ParentID.Int64)

	// a reply to a reply joins the root thread
	rec = app.do(http.MethodPost, commentsPath, budiToken, []byte(fmt.Sprintf(`{"content":"Terima kasih","parent_id":%d}`, reply.ID)))
	require.Equal(t, http.StatusCreated, rec.Code)
	var nested news.Comment
	decode(t, rec, &nested)
	assert.Equal(t, root.ID, nested.ParentID.Int64)

	rec = app.do(http.MethodPost, commentsPath, budiToken, []byte(`{"content":" "}`))
	checkCodeAndData(t, httpTest{wantCode: http.StatusBadRequest, wantData: []byte(`{"content":"this field is required"}`)}, rec)

	rec = app.do(http.MethodGet, "/v1/news", aniToken)
	require.Equal(t, http.StatusOK, rec.Code)
	var feed []news.FeedPost
	decode(t, rec, &feed)
	require.Len(t, feed, 1)
	fp := feed[0]
	assert.Contains(t, fp.HTML, "<strong>sekarang</strong>")
	assert.Equal(t, "Daftar **sekarang**", fp.Preview)
	assert.Equal(t, 1, fp.Stats.Registrations)
	assert.Equal(t, 1, fp.Stats.Likes)
	assert.Equal(t, 0, fp.Stats.Dislikes)
	assert.True(t, fp.Stats.Registered)
	assert.False(t, fp.Stats.Reaction.Valid)
	assert.True(t, fp.Stats.Bookmarked)
	require.Len(t, fp.Comments, 1)
	assert.Len(t, fp.Comments[0].Replies, 2)

	// the stats are the viewer's
	rec = app.do(http.MethodGet, "/v1/news", budiToken)
	decode(t, rec, &feed)
	assert.False(t, feed[0].Stats.Registered)
	assert.Equal(t, "like", feed[0].Stats.Reaction.String)
	assert.False(t, feed[0].Stats.Bookmarked)

	rec = app.do(http.MethodGet, "/v1/admin/posts", adminToken)
	require.Equal(t, http.StatusOK, rec.Code)
	var posts []news.PostWithRegistrations
	decode(t, rec, &posts)
	require.Len(t, posts, 1)
	assert.Equal(t, 1, posts[0].Registrations)
}
