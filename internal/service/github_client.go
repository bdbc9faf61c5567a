package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/github"
)

// githubAPIBaseURL 是 GitHub REST API 的默认地址，测试时可替换。
const githubAPIBaseURL = "https://api.github.com"

// githubAvatarBaseURL 是 GitHub 头像的默认地址。
const githubAvatarBaseURL = "https://github.com"

// GitHubUser 是 GitHub /user 接口响应中我们关心的字段。
type GitHubUser struct {
	ID      int64  `json:"id"`
	Login   string `json:"login"`
	HTMLURL string `json:"html_url"`
}

// GitHubProvider 封装 GitHub 的授权码流程：
// 跳转授权、code 换 token、再用 token 拉取用户信息。
// 换取 token 的调用在服务端完成，访问令牌不经过浏览器。
type GitHubProvider struct {
	config        *oauth2.Config
	apiBaseURL    string
	avatarBaseURL string
}

// NewGitHubProvider 创建 GitHubProvider。
// callbackURL 必须与 GitHub OAuth App 中配置的回调地址完全一致。
func NewGitHubProvider(clientID, clientSecret, callbackURL string) *GitHubProvider {
	return &GitHubProvider{
		config: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  callbackURL,
			Scopes:       []string{"read:user"},
			Endpoint:     github.Endpoint,
		},
		apiBaseURL:    githubAPIBaseURL,
		avatarBaseURL: githubAvatarBaseURL,
	}
}

// WithEndpoints 替换授权、令牌与 API 地址，仅用于测试。
func (p *GitHubProvider) WithEndpoints(authURL, tokenURL, apiBaseURL, avatarBaseURL string) *GitHubProvider {
	if authURL != "" {
		p.config.Endpoint.AuthURL = authURL
	}
	if tokenURL != "" {
		p.config.Endpoint.TokenURL = tokenURL
	}
	if apiBaseURL != "" {
		p.apiBaseURL = apiBaseURL
	}
	if avatarBaseURL != "" {
		p.avatarBaseURL = avatarBaseURL
	}
	return p
}

// AuthURL 返回引导用户跳转的 GitHub 授权地址。
// state 用于回调时校验，防止 CSRF。
func (p *GitHubProvider) AuthURL(state string) string {
	return p.config.AuthCodeURL(state, oauth2.AccessTypeOnline)
}

// Exchange 用授权码换取访问令牌，并拉取对应的 GitHub 用户信息。
func (p *GitHubProvider) Exchange(ctx context.Context, code string) (*GitHubUser, string, error) {
	token, err := p.config.Exchange(ctx, code)
	if err != nil {
		return nil, "", fmt.Errorf("exchanging OAuth code: %w", err)
	}

	client := p.config.Client(ctx, token)
	resp, err := client.Get(p.apiBaseURL + "/user")
	if err != nil {
		return nil, "", fmt.Errorf("calling GitHub /user API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("GitHub /user API returned status %d", resp.StatusCode)
	}

	var ghUser GitHubUser
	if err := json.NewDecoder(resp.Body).Decode(&ghUser); err != nil {
		return nil, "", fmt.Errorf("decoding GitHub /user response: %w", err)
	}
	if ghUser.ID == 0 {
		return nil, "", errors.New("GitHub returned an invalid user")
	}

	return &ghUser, token.AccessToken, nil
}

// FetchAvatar 代理拉取用户头像，避免未登录的访客直连 GitHub。
func (p *GitHubProvider) FetchAvatar(ctx context.Context, login string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		fmt.Sprintf("%s/%s.png", p.avatarBaseURL, login), nil)
	if err != nil {
		return nil, err
	}
	return http.DefaultClient.Do(req)
}
