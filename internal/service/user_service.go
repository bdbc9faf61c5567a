package service

import (
	"errors"

	"github.com/inklog/internal/db"
	"gorm.io/gorm"
)

var (
	ErrUserNotFound = errors.New("user not found")
	ErrUserBanned   = errors.New("user is banned")
)

// UserService 承载用户账号相关的数据库操作。
type UserService struct {
	db *gorm.DB
}

// NewUserService 创建 UserService 实例。
func NewUserService(gdb *gorm.DB) *UserService {
	return &UserService{db: gdb}
}

// ByID 返回指定 ID 的用户。
func (s *UserService) ByID(id uint) (*db.User, error) {
	var user db.User
	if err := s.db.First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

// ByGithubID 返回绑定指定 GitHub 账号的用户。
func (s *UserService) ByGithubID(githubID int64) (*db.User, error) {
	var user db.User
	if err := s.db.Where("github_id = ?", githubID).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

// UpsertFromGithub 在 OAuth 回调成功后落库：
// 首次登录创建账号，老用户则刷新登录名、主页与访问令牌。
// 被封禁的用户拒绝登录。
func (s *UserService) UpsertFromGithub(gh *GitHubUser, accessToken string) (*db.User, error) {
	user, err := s.ByGithubID(gh.ID)
	if errors.Is(err, ErrUserNotFound) {
		created := db.User{
			GithubID:      gh.ID,
			GithubLogin:   gh.Login,
			GithubHTMLURL: gh.HTMLURL,
			AccessToken:   accessToken,
		}
		if err := s.db.Create(&created).Error; err != nil {
			return nil, err
		}
		return &created, nil
	}
	if err != nil {
		return nil, err
	}

	if user.Banned {
		return nil, ErrUserBanned
	}

	user.GithubLogin = gh.Login
	user.GithubHTMLURL = gh.HTMLURL
	user.AccessToken = accessToken
	if err := s.db.Save(user).Error; err != nil {
		return nil, err
	}
	return user, nil
}
