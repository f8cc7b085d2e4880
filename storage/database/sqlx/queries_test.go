package sqlxrepos

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/volatiletech/sqlboiler/v4/queries"
	"github.com/volatiletech/sqlboiler/v4/queries/qm"

	"github.com/trezcool/beasiswa/core"
	"github.com/trezcool/beasiswa/core/portfolio"
	"github.com/trezcool/beasiswa/core/ticket"
	"github.com/trezcool/beasiswa/core/user"
)

func TestContainsPattern(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{in: "ani", want: "%ani%"},
		{in: "a_b", want: `%a\_b%`},
		{in: "50%", want: `%50\%%`},
		{in: `c:\tmp`, want: `%c:\\tmp%`},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, containsPattern(tt.in))
		})
	}
}

type queryTest struct {
	name       string
	mods       []qm.QueryMod
	wantPrefix string
	wantSuffix string
	wantArgs   []interface{}
}

func runQueryTests(t *testing.T, tests []queryTest) {
	t.Helper()
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			sql, args := queries.BuildQuery(newQuery(tt.mods...))
			assert.True(t, strings.HasPrefix(sql, tt.wantPrefix), sql)
			assert.True(t, strings.HasSuffix(sql, tt.wantSuffix), sql)
			assert.Equal(t, tt.wantArgs, args)
		})
	}
}

func Test_ticketQueryMods(t *testing.T) {
	prefix := "SELECT " + ticketDetailColumns + " FROM tickets t INNER JOIN users o ON o.id = t.user_id" +
		" LEFT JOIN users a ON a.id = t.assigned_admin_id"

	runQueryTests(t, []queryTest{
		{
			name:       "no filter",
			mods:       ticketQueryMods(ticket.AdminFilter{Status: "all"}),
			wantPrefix: prefix + " ORDER BY",
			wantSuffix: " ORDER BY t.created_at DESC, t.id DESC;",
		},
		{
			name:       "wildcards are literal",
			mods:       ticketQueryMods(ticket.AdminFilter{Status: "in_progress", User: "ani_", Title: "50%"}),
			wantPrefix: prefix,
			wantSuffix: ` WHERE (t.status = $1) AND (o.full_name ILIKE $2 ESCAPE '\') AND (t.title ILIKE $3 ESCAPE '\')` +
				" ORDER BY t.created_at DESC, t.id DESC;",
			wantArgs: []interface{}{"in_progress", `%ani\_%`, `%50\%%`},
		},
		{
			name:       "admin & year",
			mods:       ticketQueryMods(ticket.AdminFilter{Admin: "citra", Year: "2024"}),
			wantPrefix: prefix,
			wantSuffix: ` WHERE (a.full_name ILIKE $1 ESCAPE '\')` +
				` AND (to_char(t.created_at AT TIME ZONE 'Asia/Jakarta', 'YYYY') = $2)` +
				" ORDER BY t.created_at DESC, t.id DESC;",
			wantArgs: []interface{}{"%citra%", "2024"},
		},
	})
}

func Test_userQueryMods(t *testing.T) {
	active := true
	runQueryTests(t, []queryTest{
		{
			name:       "default ordering",
			mods:       userQueryMods(user.QueryFilter{}, nil),
			wantPrefix: "SELECT " + userColumns,
			wantSuffix: ` FROM "users" ORDER BY created_at DESC;`,
		},
		{
			name: "search & filters",
			mods: userQueryMods(
				user.QueryFilter{Search: "a_b", Role: "admin", IsActive: &active},
				[]core.DBOrdering{{Field: "full_name", Ascending: true}, {Field: "id"}},
			),
			wantPrefix: "SELECT " + userColumns,
			wantSuffix: ` FROM "users" WHERE ((full_name ILIKE $1 ESCAPE '\' OR email ILIKE $2 ESCAPE '\' OR campus ILIKE $3 ESCAPE '\'))` +
				` AND (role = $4) AND (is_active = $5) ORDER BY "full_name" ASC, "id" DESC;`,
			wantArgs: []interface{}{`%a\_b%`, `%a\_b%`, `%a\_b%`, "admin", true},
		},
	})
}

func Test_recordQueryMods(t *testing.T) {
	prefix := "SELECT " + recordColumns + ", u.full_name AS owner_name, u.campus AS owner_campus" +
		" FROM student_records r INNER JOIN users u ON u.id = r.user_id"

	runQueryTests(t, []queryTest{
		{
			name:       "all records",
			mods:       recordQueryMods(portfolio.RawDataFilter{}),
			wantPrefix: prefix + " ORDER BY",
			wantSuffix: " ORDER BY r.created_at DESC;",
		},
		{
			name:       "year & type",
			mods:       recordQueryMods(portfolio.RawDataFilter{Year: "2023", Type: "activity"}),
			wantPrefix: prefix,
			wantSuffix: " WHERE (r.year = $1) AND (r.record_type = $2) ORDER BY r.created_at DESC;",
			wantArgs:   []interface{}{"2023", "activity"},
		},
	})
}
