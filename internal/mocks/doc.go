// Package mocks provides shared test doubles for the store, auth and events
// interfaces.
//
// Store mocks embed testify's mock.Mock so tests can set expectations with
// On(...).Return(...). Service-facing doubles such as MockJWTService use
// function fields with fallback values instead:
//
//	jwtSvc := &mocks.MockJWTService{
//	    ValidateTokenFn: func(ctx context.Context, token string) (*auth.Claims, error) {
//	        return &auth.Claims{UserID: userID}, nil
//	    },
//	}
package mocks
