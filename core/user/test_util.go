package user

import "github.com/trezcool/beasiswa/core"

// MakeResetToken exposes the password reset uid & token of a User to tests of other packages.
func MakeResetToken(usr User, conf *core.Config) (uid, token string) {
	return EncodeUID(usr), makeToken(usr, conf.SecretKey)
}
