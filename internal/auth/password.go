package auth

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// passwordCost はbcryptのコスト。テストでは下げて実行時間を抑える。
var passwordCost = bcrypt.DefaultCost

// ErrPasswordTooLong はbcryptの72バイト上限を超えたパスワードを表す。
var ErrPasswordTooLong = errors.New("password exceeds 72 bytes")

// dummyHash は存在しないユーザーでの照合に使う。応答時間からユーザーの有無を推測させない。
var dummyHash, _ = bcrypt.GenerateFromPassword([]byte("notenews-dummy-password"), bcrypt.DefaultCost)

// HashPassword はパスワードをbcryptでハッシュ化する。
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), passwordCost)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return "", ErrPasswordTooLong
		}
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}

// CheckPassword はハッシュとパスワードが一致するかを返す。
func CheckPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
