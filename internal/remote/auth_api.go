package remote

import (
	"context"
	"fmt"

	"github.com/opencustody/walletsync/internal/types"
)

// Verification-token endpoints. A token proves the caller passed one
// verification tier for one target action; it rides next to the
// AuthorizationX headers.

type tokenData struct {
	Token struct {
		Token string `json:"token"`
	} `json:"token"`
}

// VerifiedPasswordToken exchanges the account password for a short-lived
// verification token scoped to targetAction.
func (c *Client) VerifiedPasswordToken(ctx context.Context, targetAction types.TargetAction, password string) (string, error) {
	var data tokenData
	body := map[string]string{"password": password}
	if err := c.post(ctx, "/v1/passport/verified-password-token/"+string(targetAction), nil, body, &data); err != nil {
		return "", err
	}
	if data.Token.Token == "" {
		return "", fmt.Errorf("server returned an empty verification token")
	}
	return data.Token.Token, nil
}

// RequestFederatedToken asks the server to send a federated (email) code
// for targetAction.
func (c *Client) RequestFederatedToken(ctx context.Context, targetAction types.TargetAction) error {
	return c.post(ctx, "/v1/passport/federated-token/"+string(targetAction), nil, nil, nil)
}

// VerifyFederatedToken confirms the federated code and yields the
// verification token.
func (c *Client) VerifyFederatedToken(ctx context.Context, targetAction types.TargetAction, code string) (string, error) {
	var data tokenData
	body := map[string]string{"token": code}
	if err := c.put(ctx, "/v1/passport/federated-token/"+string(targetAction), nil, body, &data); err != nil {
		return "", err
	}
	return data.Token.Token, nil
}

// VerifiedPKeyToken proves control of a primary key by signed challenge.
func (c *Client) VerifiedPKeyToken(ctx context.Context, targetAction types.TargetAction, address, signature string) (string, error) {
	var data tokenData
	body := map[string]string{"address": address, "signature": signature}
	if err := c.post(ctx, "/v1/passport/verified-pkey-token/"+string(targetAction), nil, body, &data); err != nil {
		return "", err
	}
	return data.Token.Token, nil
}

// --- security questions ---

type securityQuestionsData struct {
	Questions []types.SecurityQuestion `json:"questions"`
}

func (c *Client) GetSecurityQuestions(ctx context.Context) ([]types.SecurityQuestion, error) {
	var data securityQuestionsData
	if err := c.get(ctx, "/v1/user-wallets/security-questions", nil, &data); err != nil {
		return nil, err
	}
	return data.Questions, nil
}

type questionsPayload struct {
	QuestionsAndAnswers []types.QuestionAnswer `json:"questions_and_answers"`
}

// VerifySecurityQuestions checks the supplied answers and yields a
// Security-Question-token.
func (c *Client) VerifySecurityQuestions(ctx context.Context, answers []types.QuestionAnswer) (string, error) {
	var data tokenData
	if err := c.post(ctx, "/v1/user-wallets/security-questions/verify", nil, questionsPayload{answers}, &data); err != nil {
		return "", err
	}
	return data.Token.Token, nil
}

// ConfigSecurityQuestions sets or replaces the account's questions.
func (c *Client) ConfigSecurityQuestions(ctx context.Context, answers []types.QuestionAnswer) error {
	return c.post(ctx, "/v1/user-wallets/security-questions", nil, questionsPayload{answers}, nil)
}

// --- confirmation codes ---

type confirmationCodeData struct {
	CodeID string `json:"code_id"`
	Nonce  string `json:"nonce"`
}

type confirmationVerifyData struct {
	Token string `json:"token"`
	Nonce string `json:"nonce"`
}

// RequestConfirmationCode starts the out-of-band code confirmation tier
// for an action; body is the same envelope the commit will carry.
func (c *Client) RequestConfirmationCode(ctx context.Context, action types.TargetAction, envelope types.UserDataEnvelope) (codeID, nonce string, err error) {
	var data confirmationCodeData
	if err := c.post(ctx, "/v1/user-wallets/confirmation-code/"+string(action), nil, envelope, &data); err != nil {
		return "", "", err
	}
	return data.CodeID, data.Nonce, nil
}

// VerifyConfirmationCode trades the received code for a
// Confirmation-token, echoing the nonce the commit envelope must reuse.
func (c *Client) VerifyConfirmationCode(ctx context.Context, codeID, code string) (token, nonce string, err error) {
	var data confirmationVerifyData
	body := map[string]string{"code": code}
	if err := c.post(ctx, "/v1/user-wallets/confirmation-code/"+codeID+"/verify", nil, body, &data); err != nil {
		return "", "", err
	}
	return data.Token, data.Nonce, nil
}

type calculateRequiredSignaturesData struct {
	Result *types.CalculateRequiredSignatures `json:"result"`
}

// CalculateRequiredSignatures asks what an action needs before it can
// commit: co-signer count, security answers, confirmation codes.
func (c *Client) CalculateRequiredSignatures(ctx context.Context, path string, body any) (types.CalculateRequiredSignatures, error) {
	var data calculateRequiredSignaturesData
	if err := c.post(ctx, path, nil, body, &data); err != nil {
		return types.CalculateRequiredSignatures{}, err
	}
	if data.Result == nil {
		return types.CalculateRequiredSignatures{}, fmt.Errorf("server returned no signature requirements")
	}
	return *data.Result, nil
}
